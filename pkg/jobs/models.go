package jobs

import (
	"time"
)

// State is the lifecycle state of an import job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Import is a queued bulk load of a reference data document. The document
// is applied through the registry, so every entry passes the same checks as
// an API write.
type Import struct {
	ID              string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	RequestedBy     string     `gorm:"column:requested_by;size:100;not null;index" json:"requestedBy"`
	RequestedAt     time.Time  `gorm:"column:requested_at;not null;index:idx_import_state_time,priority:2" json:"requestedAt"`
	State           State      `gorm:"column:state;size:20;not null;default:queued;index:idx_import_state_time,priority:1" json:"state"`
	Document        string     `gorm:"column:document;type:text;not null" json:"-"`
	IdempotencyKey  *string    `gorm:"column:idempotency_key;size:100;uniqueIndex" json:"idempotencyKey,omitempty"`
	Message         string     `gorm:"column:message;size:500" json:"message,omitempty"`
	LastError       string     `gorm:"column:last_error;type:text" json:"lastError,omitempty"`
	StartedAt       *time.Time `gorm:"column:started_at" json:"startedAt,omitempty"`
	FinishedAt      *time.Time `gorm:"column:finished_at;index" json:"finishedAt,omitempty"`
	AttemptCount    int        `gorm:"column:attempt_count;not null;default:0" json:"attemptCount"`
	EntitiesCreated int        `gorm:"column:entities_created;not null;default:0" json:"entitiesCreated"`
	DurationMs      int64      `gorm:"column:duration_ms" json:"durationMs,omitempty"`
}

// TableName returns the GORM table name.
func (Import) TableName() string { return "import_jobs" }

// IsTerminal reports whether the job will not run again.
func (j *Import) IsTerminal() bool {
	switch j.State {
	case StateSucceeded, StateFailed, StateCanceled:
		return true
	}
	return false
}

var activeStates = []State{StateQueued, StateRunning}

var terminalStates = []State{StateSucceeded, StateFailed, StateCanceled}
