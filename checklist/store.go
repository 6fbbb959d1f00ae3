package checklist

import (
	"strings"
	"sync"
	"time"
)

// DefaultUsers are the participant names seeded when no configuration
// provides any.
var DefaultUsers = []string{"Maya l'abeille", "Rayanha"}

// EventSink receives lifecycle events after each successful mutation.
// Sinks must not block; delivery is best effort.
type EventSink func(Event)

// Store is the authoritative holder of checklist state. It owns the
// canonical task collections, applies lifecycle transitions, and
// enforces the approval quorum. Every operation is atomic: it either
// fully applies or fully fails, and two racing validators can never
// double-move a task.
type Store struct {
	mu       sync.Mutex
	users    []string
	tasks    []*Task // active and completed, insertion order
	pending  []*Task
	revision uint64

	now   func() time.Time
	newID func() string
	sink  EventSink
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithUsers sets the participant names shown in snapshots and health.
func WithUsers(users []string) StoreOption {
	return func(s *Store) {
		if len(users) > 0 {
			s.users = append([]string(nil), users...)
		}
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the task ID generator. Used by tests.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

// WithEventSink registers a sink for lifecycle events.
func WithEventSink(sink EventSink) StoreOption {
	return func(s *Store) { s.sink = sink }
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		users: append([]string(nil), DefaultUsers...),
		now:   time.Now,
		newID: NewTaskID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateResult is the outcome of a Validate call. Approved
// distinguishes the quorum-reaching validation from one that leaves
// the task pending.
type ValidateResult struct {
	Task        *Task `json:"task"`
	Approved    bool  `json:"approved"`
	Validations int   `json:"validationsCount"`
}

// Propose creates a new pending task. The proposer's own validation is
// recorded at creation and counts toward the quorum.
func (s *Store) Propose(title, description, proposedBy string) (*Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(proposedBy) == "" {
		return nil, &ValidationError{Field: "proposedBy", Message: "proposing user is required"}
	}

	s.mu.Lock()
	task := &Task{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		ProposedBy:  proposedBy,
		ProposedAt:  s.now(),
		Validations: []string{proposedBy},
		Status:      StatusPending,
	}
	s.pending = append(s.pending, task)
	s.revision++
	out := task.Clone()
	s.mu.Unlock()

	s.emit(&TaskProposed{Task: out.Clone()})
	return out, nil
}

// Validate records userID's approval of a pending task. A duplicate
// validation by the same participant is a no-op that still returns the
// current state. When the distinct-approver count reaches Quorum the
// task atomically moves from pending to active.
func (s *Store) Validate(taskID, userID string) (*ValidateResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "userId", Message: "user is required"}
	}

	s.mu.Lock()
	idx := s.pendingIndex(taskID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, notFound(taskID)
	}

	task := s.pending[idx]
	if task.ValidatedBy(userID) {
		// Idempotent: the approval count must not inflate and no
		// transition may re-trigger.
		res := &ValidateResult{Task: task.Clone(), Approved: false, Validations: len(task.Validations)}
		s.mu.Unlock()
		return res, nil
	}

	task.Validations = append(task.Validations, userID)
	s.revision++

	if len(task.Validations) < Quorum {
		res := &ValidateResult{Task: task.Clone(), Approved: false, Validations: len(task.Validations)}
		ev := &TaskValidated{
			TaskID:      task.ID,
			UserID:      userID,
			Validations: append([]string(nil), task.Validations...),
		}
		s.mu.Unlock()
		s.emit(ev)
		return res, nil
	}

	// Quorum reached: move pending→active in the same operation so the
	// task is never observable in both collections.
	now := s.now()
	task.Status = StatusActive
	task.ApprovedAt = &now
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	s.tasks = append(s.tasks, task)

	res := &ValidateResult{Task: task.Clone(), Approved: true, Validations: len(task.Validations)}
	ev := &TaskApproved{Task: task.Clone()}
	s.mu.Unlock()

	s.emit(ev)
	return res, nil
}

// Reject removes a pending task permanently. Any participant may
// reject any proposal; no quorum or ownership check applies.
func (s *Store) Reject(taskID, userID string) (*Task, error) {
	s.mu.Lock()
	idx := s.pendingIndex(taskID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, notFound(taskID)
	}

	task := s.pending[idx]
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	s.revision++
	out := task.Clone()
	s.mu.Unlock()

	s.emit(&TaskRejected{TaskID: taskID, RejectedBy: userID})
	return out, nil
}

// Complete marks an active task as completed, recording who finished
// it and when. Completing a task that is not active — including one
// already completed — fails with ErrNotFound and never corrupts state.
func (s *Store) Complete(taskID, userID string) (*Task, error) {
	s.mu.Lock()
	var task *Task
	for _, t := range s.tasks {
		if t.ID == taskID && t.Status == StatusActive {
			task = t
			break
		}
	}
	if task == nil {
		s.mu.Unlock()
		return nil, notFound(taskID)
	}

	now := s.now()
	task.Status = StatusCompleted
	task.CompletedBy = userID
	task.CompletedAt = &now
	s.revision++
	out := task.Clone()
	s.mu.Unlock()

	s.emit(&TaskCompleted{Task: out.Clone()})
	return out, nil
}

// Delete removes a task from whichever collection holds it, searching
// active/completed then pending. Deletion is destructive and final;
// there is no tombstone.
func (s *Store) Delete(taskID, userID string) (*Task, error) {
	s.mu.Lock()
	var task *Task
	for i, t := range s.tasks {
		if t.ID == taskID {
			task = t
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	if task == nil {
		if idx := s.pendingIndex(taskID); idx >= 0 {
			task = s.pending[idx]
			s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
		}
	}
	if task == nil {
		s.mu.Unlock()
		return nil, notFound(taskID)
	}

	s.revision++
	out := task.Clone()
	s.mu.Unlock()

	s.emit(&TaskDeleted{TaskID: taskID, DeletedBy: userID})
	return out, nil
}

// Snapshot returns a deep-copied view of the current state together
// with the revision marker.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Users:        append([]string(nil), s.users...),
		Tasks:        make([]*Task, 0, len(s.tasks)),
		PendingTasks: make([]*Task, 0, len(s.pending)),
		Revision:     s.revision,
	}
	for _, t := range s.tasks {
		snap.Tasks = append(snap.Tasks, t.Clone())
	}
	for _, t := range s.pending {
		snap.PendingTasks = append(snap.PendingTasks, t.Clone())
	}
	return snap
}

// Revision returns the current revision marker without copying state.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Users returns the configured participant names.
func (s *Store) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.users...)
}

// Restore replaces the store contents with a previously saved
// snapshot. Used at startup to resume from persistence; it does not
// emit events.
func (s *Store) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = s.tasks[:0]
	s.pending = s.pending[:0]
	for _, t := range snap.Tasks {
		s.tasks = append(s.tasks, t.Clone())
	}
	for _, t := range snap.PendingTasks {
		s.pending = append(s.pending, t.Clone())
	}
	if len(snap.Users) > 0 {
		s.users = append([]string(nil), snap.Users...)
	}
	if snap.Revision > s.revision {
		s.revision = snap.Revision
	}
}

// pendingIndex returns the index of taskID in the pending collection,
// or -1. Caller must hold the lock.
func (s *Store) pendingIndex(taskID string) int {
	for i, t := range s.pending {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

func (s *Store) emit(ev Event) {
	if s.sink != nil {
		s.sink(ev)
	}
}
