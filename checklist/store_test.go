package checklist

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	base := []StoreOption{WithUsers([]string{"Alice", "Bob"})}
	return NewStore(append(base, opts...)...)
}

func TestPropose(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("  Buy milk  ", " whole, not skimmed ", "Alice")
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Buy milk", task.Title, "title is trimmed")
	assert.Equal(t, "whole, not skimmed", task.Description)
	assert.Equal(t, "Alice", task.ProposedBy)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, []string{"Alice"}, task.Validations, "proposer validates implicitly")
	assert.False(t, task.ProposedAt.IsZero())

	snap := s.Snapshot()
	assert.Len(t, snap.PendingTasks, 1)
	assert.Empty(t, snap.Tasks)
}

func TestProposeValidation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Propose("   ", "desc", "Alice")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)

	_, err = s.Propose("Title", "", "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "proposedBy", ve.Field)

	assert.Zero(t, s.Revision(), "failed operations must not bump the revision")
}

func TestValidateReachesQuorum(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("Buy milk", "", "Alice")
	require.NoError(t, err)

	res, err := s.Validate(task.ID, "Bob")
	require.NoError(t, err)
	assert.True(t, res.Approved, "one external approval reaches quorum")
	assert.Equal(t, 2, res.Validations)
	assert.Equal(t, StatusActive, res.Task.Status)
	require.NotNil(t, res.Task.ApprovedAt)

	// Quorum invariant: active and removed from pending in the same
	// observable snapshot, never both.
	snap := s.Snapshot()
	assert.Empty(t, snap.PendingTasks)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, StatusActive, snap.Tasks[0].Status)
}

func TestValidateIdempotent(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)

	// Self-validation by the proposer is the duplicate case: a no-op
	// that leaves the task pending and never re-counts.
	res, err := s.Validate(task.ID, "Alice")
	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.Equal(t, 1, res.Validations)
	assert.Equal(t, StatusPending, res.Task.Status)

	res, err = s.Validate(task.ID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Validations, "duplicate validation must not inflate the count")

	snap := s.Snapshot()
	require.Len(t, snap.PendingTasks, 1)
	assert.Equal(t, []string{"Alice"}, snap.PendingTasks[0].Validations)
}

func TestValidateUnknownTask(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Validate("nope", "Bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidationsFrozenAfterApproval(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)
	_, err = s.Validate(task.ID, "Bob")
	require.NoError(t, err)

	// The task left pending, so further validations are NotFound and
	// the recorded approvals stay frozen.
	_, err = s.Validate(task.ID, "Bob")
	assert.ErrorIs(t, err, ErrNotFound)

	snap := s.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, []string{"Alice", "Bob"}, snap.Tasks[0].Validations)
}

func TestReject(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)

	// No ownership check: the proposer may reject their own proposal,
	// and so may the counterpart.
	removed, err := s.Reject(task.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, task.ID, removed.ID)

	snap := s.Snapshot()
	assert.Empty(t, snap.PendingTasks)

	_, err = s.Reject(task.ID, "Bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectActiveTaskFails(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)
	_, err = s.Validate(task.ID, "Bob")
	require.NoError(t, err)

	_, err = s.Reject(task.ID, "Bob")
	assert.ErrorIs(t, err, ErrNotFound, "reject only applies to pending tasks")
}

func TestComplete(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("Buy milk", "", "Alice")
	require.NoError(t, err)
	_, err = s.Validate(task.ID, "Bob")
	require.NoError(t, err)

	done, err := s.Complete(task.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "Bob", done.CompletedBy)
	require.NotNil(t, done.CompletedAt)

	// Re-completing is a soft failure, never state corruption.
	_, err = s.Complete(task.ID, "Alice")
	assert.ErrorIs(t, err, ErrNotFound)

	snap := s.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "Bob", snap.Tasks[0].CompletedBy)
}

func TestCompletePendingTaskFails(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)

	_, err = s.Complete(task.ID, "Bob")
	assert.ErrorIs(t, err, ErrNotFound, "pending tasks cannot be completed")
}

func TestDeleteIsDestructive(t *testing.T) {
	s := newTestStore(t)

	pending, err := s.Propose("pending one", "", "Alice")
	require.NoError(t, err)
	active, err := s.Propose("active one", "", "Alice")
	require.NoError(t, err)
	_, err = s.Validate(active.ID, "Bob")
	require.NoError(t, err)

	for _, id := range []string{pending.ID, active.ID} {
		removed, err := s.Delete(id, "Bob")
		require.NoError(t, err)
		assert.Equal(t, id, removed.ID)

		// Every subsequent operation on the deleted ID fails.
		_, err = s.Validate(id, "Bob")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Reject(id, "Bob")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Complete(id, "Bob")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Delete(id, "Bob")
		assert.ErrorIs(t, err, ErrNotFound)
	}

	snap := s.Snapshot()
	assert.Empty(t, snap.Tasks)
	assert.Empty(t, snap.PendingTasks)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.PendingTasks[0].Title = "mutated"
	snap.PendingTasks[0].Validations = append(snap.PendingTasks[0].Validations, "Eve")

	fresh := s.Snapshot()
	assert.Equal(t, "X", fresh.PendingTasks[0].Title)
	assert.Equal(t, []string{"Alice"}, fresh.PendingTasks[0].Validations)
	assert.Equal(t, task.ID, fresh.PendingTasks[0].ID)
}

func TestRevisionMonotonic(t *testing.T) {
	s := newTestStore(t)

	r0 := s.Revision()
	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)
	r1 := s.Revision()
	assert.Greater(t, r1, r0)

	_, err = s.Validate(task.ID, "Bob")
	require.NoError(t, err)
	r2 := s.Revision()
	assert.Greater(t, r2, r1)

	// A failed operation changes nothing and keeps the revision.
	_, err = s.Validate(task.ID, "Bob")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, r2, s.Revision())
}

func TestConcurrentValidatorsSingleWinner(t *testing.T) {
	s := newTestStore(t, WithUsers([]string{"Alice", "Bob", "Carol"}))

	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)

	// Two racing validators: exactly one observes the approved
	// transition, the task moves exactly once.
	var wg sync.WaitGroup
	results := make([]*ValidateResult, 2)
	errs := make([]error, 2)
	for i, user := range []string{"Bob", "Carol"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.Validate(task.ID, user)
		}()
	}
	wg.Wait()

	approvals := 0
	for i := range results {
		if errs[i] == nil && results[i].Approved {
			approvals++
		} else if errs[i] != nil {
			assert.ErrorIs(t, errs[i], ErrNotFound)
		}
	}
	assert.Equal(t, 1, approvals)

	snap := s.Snapshot()
	assert.Empty(t, snap.PendingTasks)
	require.Len(t, snap.Tasks, 1, "task is never double-moved nor lost")
}

func TestRestoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("Buy milk", "", "Alice")
	require.NoError(t, err)
	_, err = s.Validate(task.ID, "Bob")
	require.NoError(t, err)
	_, err = s.Propose("Still pending", "", "Bob")
	require.NoError(t, err)

	snap := s.Snapshot()

	restored := NewStore()
	restored.Restore(snap)

	got := restored.Snapshot()
	assert.Equal(t, snap.Users, got.Users)
	assert.Equal(t, snap.Revision, got.Revision)
	require.Len(t, got.Tasks, 1)
	require.Len(t, got.PendingTasks, 1)
	assert.Equal(t, snap.Tasks[0], got.Tasks[0])
}

func TestEventSink(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	s := newTestStore(t, WithEventSink(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))

	task, err := s.Propose("X", "", "Alice")
	require.NoError(t, err)
	_, err = s.Validate(task.ID, "Bob")
	require.NoError(t, err)
	_, err = s.Complete(task.ID, "Bob")
	require.NoError(t, err)
	_, err = s.Delete(task.ID, "Alice")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 4)
	assert.IsType(t, &TaskProposed{}, events[0])
	assert.IsType(t, &TaskApproved{}, events[1], "quorum validation emits approved, not validated")
	assert.IsType(t, &TaskCompleted{}, events[2])
	assert.IsType(t, &TaskDeleted{}, events[3])
}

func TestLifecycleScenario(t *testing.T) {
	// The full worked example: propose → validate → complete → delete.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }))

	task, err := s.Propose("Buy milk", "", "Alice")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, []string{"Alice"}, task.Validations)

	res, err := s.Validate(task.ID, "Bob")
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Equal(t, now, *res.Task.ApprovedAt)

	done, err := s.Complete(task.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "Bob", done.CompletedBy)

	_, err = s.Delete(task.ID, "Alice")
	require.NoError(t, err)

	_, err = s.Complete(task.ID, "Bob")
	assert.True(t, errors.Is(err, ErrNotFound))
}
