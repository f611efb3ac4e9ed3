package domain

import "encoding/json"

// RepeatMode is the policy governing automatic track advancement at
// end-of-track or on explicit skip.
type RepeatMode int

const (
	RepeatSequence   RepeatMode = iota // Play in order, stop at end
	RepeatLoopList                     // Play in order, wrap to the start
	RepeatShuffle                      // Uniform-random next pick
	RepeatLoopSingle                   // Restart current track indefinitely
	RepeatSingleOnce                   // Stop after current track, ignore queue
)

// repeatModeCount is the size of the closed, cyclically-ordered mode set.
const repeatModeCount = 5

// Next returns the mode following this one in the fixed cycle
// Sequence -> LoopList -> Shuffle -> LoopSingle -> SingleOnce -> Sequence.
func (m RepeatMode) Next() RepeatMode {
	return (m + 1) % repeatModeCount
}

// String returns a human-readable representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatLoopList:
		return "loop_list"
	case RepeatShuffle:
		return "shuffle"
	case RepeatLoopSingle:
		return "loop_single"
	case RepeatSingleOnce:
		return "single_once"
	default:
		return "sequence"
	}
}

// ParseRepeatMode converts a string to a RepeatMode.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "loop_list":
		return RepeatLoopList
	case "shuffle":
		return RepeatShuffle
	case "loop_single":
		return RepeatLoopSingle
	case "single_once":
		return RepeatSingleOnce
	default:
		return RepeatSequence
	}
}

// MarshalJSON encodes the mode as its string name. The mode is part of the
// persisted snapshot and must survive reordering of the enum values.
func (m RepeatMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes the mode from its string name.
func (m *RepeatMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = ParseRepeatMode(s)
	return nil
}
