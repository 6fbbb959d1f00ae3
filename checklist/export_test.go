package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Propose("Buy milk", "", "Alice")
	require.NoError(t, err)
	_, err = s.Validate(task.ID, "Bob")
	require.NoError(t, err)
	_, err = s.Propose("Pending one", "", "Bob")
	require.NoError(t, err)

	payload := s.Export()
	assert.Equal(t, ExportVersion, payload.Version)
	assert.False(t, payload.ExportedAt.IsZero())
	assert.Len(t, payload.Tasks, 1)
	assert.Len(t, payload.PendingTasks, 1)
	assert.Equal(t, []string{"Alice", "Bob"}, payload.Users)
}

func TestImportDeduplicatesByID(t *testing.T) {
	s := newTestStore(t)

	existing, err := s.Propose("Already here", "", "Alice")
	require.NoError(t, err)

	payload := &ExportPayload{
		Tasks: []*Task{
			{ID: "a1", Title: "Imported active", Status: StatusActive, ProposedBy: "Bob"},
		},
		PendingTasks: []*Task{
			{ID: existing.ID, Title: "Duplicate of existing", Status: StatusPending},
			{ID: "p1", Title: "Imported pending", Status: StatusPending, ProposedBy: "Bob"},
		},
	}

	res, err := s.Import(payload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TasksAdded)
	assert.Equal(t, 1, res.PendingAdded, "task with a known ID is skipped")

	// Re-importing the same file is harmless.
	res, err = s.Import(payload)
	require.NoError(t, err)
	assert.Zero(t, res.TasksAdded)
	assert.Zero(t, res.PendingAdded)

	snap := s.Snapshot()
	assert.Len(t, snap.Tasks, 1)
	assert.Len(t, snap.PendingTasks, 2)
}

func TestImportRejectsInvalidPayload(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Import(nil)
	assert.True(t, IsValidationError(err))

	_, err = s.Import(&ExportPayload{})
	assert.True(t, IsValidationError(err))

	// An explicit empty collection is a valid, if pointless, import.
	_, err = s.Import(&ExportPayload{Tasks: []*Task{}})
	assert.NoError(t, err)
}
