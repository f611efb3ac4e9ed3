package domain

// ImportStatus is the lifecycle status of a catalog import task.
type ImportStatus string

const (
	ImportInitializing ImportStatus = "INITIALIZING"
	ImportParsing      ImportStatus = "PARSING"
	ImportSuccess      ImportStatus = "SUCCESS"
	ImportFailed       ImportStatus = "FAILED"
)

// Terminal returns true once the task can no longer make progress.
func (s ImportStatus) Terminal() bool {
	return s == ImportSuccess || s == ImportFailed
}

// ImportTask is a catalog import/scan job. The catalog service owns it;
// the player only creates and polls tasks on behalf of the UI.
type ImportTask struct {
	ID      string       `json:"id"`
	Status  ImportStatus `json:"status"`
	Total   int          `json:"total"`
	Current int          `json:"current"`
	Message string       `json:"message,omitempty"`
}
