package domain

// IndexOf returns the index of the track with the given ID in the queue,
// or -1 if it is not present. The current track is not guaranteed to be a
// member of the queue; callers must treat -1 as "no safe advancement".
func IndexOf(tracks []Track, id TrackID) int {
	for i := range tracks {
		if tracks[i].ID == id {
			return i
		}
	}
	return -1
}

// NextIndex computes the queue index to advance to from current, following
// the repeat mode rules. The second return value is false when there is no
// next track and playback should stop.
//
//   - RepeatSequence: current+1 if in bounds, otherwise no next
//   - RepeatLoopList: (current+1) mod length
//   - RepeatShuffle: intn(length), not guaranteed to avoid immediate repeats
//   - RepeatLoopSingle: current (the caller restarts the track instead)
//   - RepeatSingleOnce: always no next
func NextIndex(length, current int, mode RepeatMode, intn func(int) int) (int, bool) {
	if length == 0 {
		return 0, false
	}

	switch mode {
	case RepeatLoopList:
		return (current + 1) % length, true
	case RepeatShuffle:
		return intn(length), true
	case RepeatLoopSingle:
		return current, true
	case RepeatSingleOnce:
		return 0, false
	default: // RepeatSequence
		if current+1 < length {
			return current + 1, true
		}
		return 0, false
	}
}

// PreviousIndex computes the queue index preceding current, wrapping to the
// last track when current is the first.
func PreviousIndex(length, current int) int {
	if current > 0 {
		return current - 1
	}
	return length - 1
}
