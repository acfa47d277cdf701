package constants

// RunStatus is the canonical status for stored extraction records.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusPending   RunStatus = "PENDING"   // accepted, waiting for a worker
	RunStatusRunning   RunStatus = "RUNNING"   // pipeline in progress
	RunStatusCompleted RunStatus = "COMPLETED" // result assembled and stored
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure
)

func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}
