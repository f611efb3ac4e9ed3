package domain

import "time"

// InviteTTL is how long a received sync invite stays valid before it
// auto-expires.
const InviteTTL = 15 * time.Second

// Participant identifies one device in a sync session.
type Participant struct {
	UserID     string `json:"userId"`
	DeviceName string `json:"deviceName"`
}

// SyncSession is an agreed pairing between two or more devices sharing one
// playback transport state. It exists only while the devices have mutually
// agreed to share playback and is never persisted across restarts.
type SyncSession struct {
	SessionID    string        `json:"sessionId"`
	Participants []Participant `json:"participants"`
	IsHost       bool          `json:"isHost"`
}

// AddParticipant adds a participant to the roster if not already present.
func (s *SyncSession) AddParticipant(p Participant) {
	for _, existing := range s.Participants {
		if existing == p {
			return
		}
	}
	s.Participants = append(s.Participants, p)
}

// RemoveParticipant removes a participant from the roster.
// Returns the number of participants remaining.
func (s *SyncSession) RemoveParticipant(p Participant) int {
	for i, existing := range s.Participants {
		if existing == p {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			break
		}
	}
	return len(s.Participants)
}

// Clone returns a copy of the session with its own roster slice.
func (s *SyncSession) Clone() *SyncSession {
	clone := &SyncSession{
		SessionID:    s.SessionID,
		Participants: make([]Participant, len(s.Participants)),
		IsHost:       s.IsHost,
	}
	copy(clone.Participants, s.Participants)
	return clone
}

// SyncInvite is an ephemeral invitation to join a sync session. It carries
// enough of the inviter's playback state for the invitee to preview what
// they would be joining.
type SyncInvite struct {
	SessionID      string  `json:"sessionId"`
	FromUserID     string  `json:"fromUserId"`
	FromDeviceID   string  `json:"fromDeviceId"`
	FromDeviceName string  `json:"fromDeviceName"`
	FromUsername   string  `json:"fromUsername"`
	CurrentTrack   *Track  `json:"currentTrack,omitempty"`
	Playlist       []Track `json:"playlist,omitempty"`
	Progress       float64 `json:"progress"` // seconds into the current track

	ReceivedAt time.Time `json:"-"`
}

// Expired returns true once the invite has outlived InviteTTL.
func (i *SyncInvite) Expired(now time.Time) bool {
	return now.Sub(i.ReceivedAt) >= InviteTTL
}
