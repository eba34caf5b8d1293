package train

// Status is the lifecycle state of a training run. It only transitions via
// explicit commands or authoritative server status messages.
type Status string

// The possible training statuses.
const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusStopping  Status = "stopping"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusPaused, StatusStopping, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Terminal reports whether a run in this status requires an explicit new
// start to leave it.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}
