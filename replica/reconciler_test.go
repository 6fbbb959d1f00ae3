package replica

import (
	"context"
	"testing"

	"github.com/Czernobog023/duolist/checklist"
	"github.com/Czernobog023/duolist/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposeLocalUsesTempID(t *testing.T) {
	r := NewReconciler("Alice")

	task := r.ProposeLocal("Buy milk", "whole milk")

	assert.True(t, checklist.IsTempID(task.ID))
	assert.Equal(t, checklist.StatusPending, task.Status)
	assert.Equal(t, []string{"Alice"}, task.Validations)

	snap := r.Snapshot()
	require.Len(t, snap.PendingTasks, 1)
}

func TestValidateLocalReachesQuorum(t *testing.T) {
	r := NewReconciler("Bob")
	r.Reconcile(context.Background(), &checklist.Snapshot{
		Users: []string{"Alice", "Bob"},
		PendingTasks: []*checklist.Task{{
			ID:          "t1",
			Title:       "Paint fence",
			ProposedBy:  "Alice",
			Validations: []string{"Alice"},
			Status:      checklist.StatusPending,
		}},
	})

	r.ValidateLocal("t1")

	snap := r.Snapshot()
	assert.Empty(t, snap.PendingTasks)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, checklist.StatusActive, snap.Tasks[0].Status)
	assert.NotNil(t, snap.Tasks[0].ApprovedAt)
}

func TestValidateLocalIsIdempotent(t *testing.T) {
	r := NewReconciler("Alice")
	task := r.ProposeLocal("Buy milk", "")

	r.ValidateLocal(task.ID)

	snap := r.Snapshot()
	require.Len(t, snap.PendingTasks, 1)
	assert.Equal(t, []string{"Alice"}, snap.PendingTasks[0].Validations)
}

func TestServerWinsOnReconcile(t *testing.T) {
	r := NewReconciler("Alice")
	r.Reconcile(context.Background(), &checklist.Snapshot{
		Tasks: []*checklist.Task{{ID: "t1", Title: "Mow lawn", Status: checklist.StatusActive}},
	})

	// The server saw a completion this replica missed.
	r.CompleteLocal("t1")
	r.Reconcile(context.Background(), &checklist.Snapshot{
		Tasks: []*checklist.Task{{
			ID:          "t1",
			Title:       "Mow lawn",
			Status:      checklist.StatusCompleted,
			CompletedBy: "Bob",
		}},
		Revision: 4,
	})

	snap := r.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "Bob", snap.Tasks[0].CompletedBy)
	assert.Equal(t, uint64(4), snap.Revision)
}

func TestUnacknowledgedProposalSurvivesReconcile(t *testing.T) {
	r := NewReconciler("Alice")
	local := r.ProposeLocal("Buy milk", "")

	// Poll lands before the server processed the proposal.
	r.Reconcile(context.Background(), &checklist.Snapshot{Users: []string{"Alice", "Bob"}})

	snap := r.Snapshot()
	require.Len(t, snap.PendingTasks, 1)
	assert.Equal(t, local.ID, snap.PendingTasks[0].ID)
}

func TestAcknowledgedProposalReplacesTempTask(t *testing.T) {
	r := NewReconciler("Alice")
	r.ProposeLocal("Buy milk", "")

	r.Reconcile(context.Background(), &checklist.Snapshot{
		PendingTasks: []*checklist.Task{{
			ID:          "server-id-1",
			Title:       "Buy milk",
			ProposedBy:  "Alice",
			Validations: []string{"Alice"},
			Status:      checklist.StatusPending,
		}},
	})

	snap := r.Snapshot()
	require.Len(t, snap.PendingTasks, 1)
	assert.Equal(t, "server-id-1", snap.PendingTasks[0].ID)
}

func TestRepeatedTitleAcknowledgedInOrder(t *testing.T) {
	r := NewReconciler("Alice")
	first := r.ProposeLocal("Buy milk", "")
	second := r.ProposeLocal("Buy milk", "again")

	// The server has processed only the first of the two identical
	// proposals; the second must stay visible under its temporary ID.
	r.Reconcile(context.Background(), &checklist.Snapshot{
		PendingTasks: []*checklist.Task{{
			ID:          "server-id-1",
			Title:       "Buy milk",
			ProposedBy:  "Alice",
			Validations: []string{"Alice"},
			Status:      checklist.StatusPending,
		}},
	})

	snap := r.Snapshot()
	require.Len(t, snap.PendingTasks, 2)
	assert.Equal(t, "server-id-1", snap.PendingTasks[0].ID)
	assert.Equal(t, second.ID, snap.PendingTasks[1].ID)
	assert.NotEqual(t, first.ID, snap.PendingTasks[1].ID)

	// Once both are acknowledged, no temporary entries remain.
	r.Reconcile(context.Background(), &checklist.Snapshot{
		PendingTasks: []*checklist.Task{
			{ID: "server-id-1", Title: "Buy milk", ProposedBy: "Alice", Status: checklist.StatusPending},
			{ID: "server-id-2", Title: "Buy milk", ProposedBy: "Alice", Status: checklist.StatusPending},
		},
	})
	assert.Len(t, r.Snapshot().PendingTasks, 2)
	for _, task := range r.Snapshot().PendingTasks {
		assert.False(t, checklist.IsTempID(task.ID))
	}
}

func TestAcknowledgedProposalAlreadyApproved(t *testing.T) {
	r := NewReconciler("Alice")
	r.ProposeLocal("Buy milk", "")

	// The other user validated before our first poll, so the task
	// shows up in the active list instead of the pending one.
	r.Reconcile(context.Background(), &checklist.Snapshot{
		Tasks: []*checklist.Task{{
			ID:         "server-id-1",
			Title:      "Buy milk",
			ProposedBy: "Alice",
			Status:     checklist.StatusActive,
		}},
	})

	snap := r.Snapshot()
	assert.Empty(t, snap.PendingTasks)
	require.Len(t, snap.Tasks, 1)
}

func TestLocalMutations(t *testing.T) {
	r := NewReconciler("Alice")
	r.Reconcile(context.Background(), &checklist.Snapshot{
		Tasks: []*checklist.Task{{ID: "a1", Status: checklist.StatusActive}},
		PendingTasks: []*checklist.Task{
			{ID: "p1", Status: checklist.StatusPending},
			{ID: "p2", Status: checklist.StatusPending},
		},
	})

	r.RejectLocal("p1")
	r.CompleteLocal("a1")
	r.DeleteLocal("p2")

	snap := r.Snapshot()
	assert.Empty(t, snap.PendingTasks)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, checklist.StatusCompleted, snap.Tasks[0].Status)
	assert.Equal(t, "Alice", snap.Tasks[0].CompletedBy)
}

func TestSnapshotIsIsolated(t *testing.T) {
	r := NewReconciler("Alice")
	r.ProposeLocal("Buy milk", "")

	snap := r.Snapshot()
	snap.PendingTasks[0].Title = "mutated"

	assert.Equal(t, "Buy milk", r.Snapshot().PendingTasks[0].Title)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := storage.NewFileStore(t.TempDir()+"/replica.json", nil)
	ctx := context.Background()

	r := NewReconciler("Alice", WithCache(cache))
	r.Reconcile(ctx, &checklist.Snapshot{
		Users:    []string{"Alice", "Bob"},
		Tasks:    []*checklist.Task{{ID: "t1", Status: checklist.StatusActive}},
		Revision: 7,
	})
	assert.False(t, r.LastSync().IsZero())

	fresh := NewReconciler("Alice", WithCache(cache))
	require.NoError(t, fresh.RestoreFromCache(ctx))

	snap := fresh.Snapshot()
	assert.Equal(t, uint64(7), snap.Revision)
	require.Len(t, snap.Tasks, 1)
}

func TestRestoreFromEmptyCache(t *testing.T) {
	cache := storage.NewFileStore(t.TempDir()+"/replica.json", nil)

	r := NewReconciler("Alice", WithCache(cache))
	require.NoError(t, r.RestoreFromCache(context.Background()))
	assert.Empty(t, r.Snapshot().Tasks)
}
