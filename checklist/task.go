// Package checklist implements the shared two-person task list: the
// task model, the authoritative lifecycle store, and the typed events
// emitted on every transition.
package checklist

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	// StatusPending means the task is proposed but not yet approved
	// by both participants.
	StatusPending Status = "pending"
	// StatusActive means the task reached the approval quorum.
	StatusActive Status = "active"
	// StatusCompleted means an active task was marked done.
	StatusCompleted Status = "completed"
)

// Quorum is the number of distinct validating participants required
// to move a task from pending to active. The proposer's implicit
// validation at creation counts toward it, so exactly one external
// approval activates a task.
const Quorum = 2

// TempIDPrefix marks client-generated placeholder IDs for tasks that
// the server has not yet acknowledged.
const TempIDPrefix = "temp_"

// Task is the central entity of the checklist.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// ProposedBy is the participant who created the task. Immutable.
	ProposedBy string    `json:"proposedBy"`
	ProposedAt time.Time `json:"proposedAt"`

	// Validations holds the distinct participants who approved the
	// task while pending, in insertion order. Frozen once the task
	// leaves pending.
	Validations []string `json:"validations,omitempty"`

	Status Status `json:"status"`

	// ApprovedAt is set exactly once, on the pending→active transition.
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`

	// CompletedBy and CompletedAt are set exactly once, on the
	// active→completed transition.
	CompletedBy string     `json:"completedBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Validations != nil {
		c.Validations = append([]string(nil), t.Validations...)
	}
	if t.ApprovedAt != nil {
		at := *t.ApprovedAt
		c.ApprovedAt = &at
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// ValidatedBy reports whether userID already validated the task.
func (t *Task) ValidatedBy(userID string) bool {
	for _, v := range t.Validations {
		if v == userID {
			return true
		}
	}
	return false
}

// NewTaskID generates a canonical server-assigned task identifier.
func NewTaskID() string {
	return uuid.New().String()
}

// NewTempID generates a client-side placeholder identifier for a task
// that has not yet been acknowledged by the server.
func NewTempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether id is a client-generated placeholder.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
