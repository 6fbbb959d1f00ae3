package checklist

// NATS subjects for checklist lifecycle events, one per event type so
// consumers can subscribe by transition instead of filtering a single
// shared subject.
const (
	SubjectTaskProposed  = "checklist.events.task.proposed"
	SubjectTaskValidated = "checklist.events.task.validated"
	SubjectTaskApproved  = "checklist.events.task.approved"
	SubjectTaskRejected  = "checklist.events.task.rejected"
	SubjectTaskCompleted = "checklist.events.task.completed"
	SubjectTaskDeleted   = "checklist.events.task.deleted"
	SubjectDataImported  = "checklist.events.data.imported"
)

// Event is a lifecycle event emitted by the store. Each concrete type
// carries only the fields relevant to its transition.
type Event interface {
	// Subject returns the NATS subject the event is published to.
	Subject() string
}

// TaskProposed is emitted when a new task enters the pending
// collection.
type TaskProposed struct {
	Task *Task `json:"task"`
}

func (*TaskProposed) Subject() string { return SubjectTaskProposed }

// TaskValidated is emitted when a validation is recorded but the
// quorum is not yet reached.
type TaskValidated struct {
	TaskID      string   `json:"taskId"`
	UserID      string   `json:"userId"`
	Validations []string `json:"validations"`
}

func (*TaskValidated) Subject() string { return SubjectTaskValidated }

// TaskApproved is emitted when a task reaches quorum and becomes
// active.
type TaskApproved struct {
	Task *Task `json:"task"`
}

func (*TaskApproved) Subject() string { return SubjectTaskApproved }

// TaskRejected is emitted when a pending task is rejected.
type TaskRejected struct {
	TaskID     string `json:"taskId"`
	RejectedBy string `json:"rejectedBy"`
}

func (*TaskRejected) Subject() string { return SubjectTaskRejected }

// TaskCompleted is emitted when an active task is marked done.
type TaskCompleted struct {
	Task *Task `json:"task"`
}

func (*TaskCompleted) Subject() string { return SubjectTaskCompleted }

// TaskDeleted is emitted when a task is removed from either
// collection.
type TaskDeleted struct {
	TaskID    string `json:"taskId"`
	DeletedBy string `json:"deletedBy"`
}

func (*TaskDeleted) Subject() string { return SubjectTaskDeleted }

// DataImported is emitted after an import merged external tasks into
// the store.
type DataImported struct {
	TasksAdded   int `json:"tasksAdded"`
	PendingAdded int `json:"pendingAdded"`
}

func (*DataImported) Subject() string { return SubjectDataImported }
