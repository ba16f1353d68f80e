package record

import "time"

// RebuildState is the lifecycle of an index rebuild for one record type.
type RebuildState string

// Rebuild states.
const (
	RebuildRunning RebuildState = "running"
	RebuildDone    RebuildState = "done"
	RebuildFailed  RebuildState = "failed"
)

// RebuildStatus is the progress report of the latest rebuild of a record type.
type RebuildStatus struct {
	Type       string       `json:"type"`
	State      RebuildState `json:"state"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
	Indexed    int          `json:"indexed"`
	Skipped    int          `json:"skipped"`
	Error      string       `json:"error,omitempty"`
}
