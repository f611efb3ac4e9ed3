package domain

// Origin tags a state mutation with where it came from. Mutations applied on
// behalf of a sync peer carry OriginRemote so observers can tell them apart
// from local user intent; the sync broadcaster only re-emits local mutations,
// which prevents echo loops over the relay without a time-windowed flag.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

// IsRemote returns true for mutations applied from a sync peer's command.
func (o Origin) IsRemote() bool {
	return o == OriginRemote
}

// String returns the origin name.
func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}
