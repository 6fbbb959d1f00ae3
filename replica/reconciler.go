// Package replica maintains a local copy of the checklist that can be
// mutated optimistically and reconciled against the server's
// authoritative state. The server always wins on conflict; the only
// local state that survives a reconcile is a proposal the server has
// not seen yet.
package replica

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Czernobog023/duolist/checklist"
	"github.com/Czernobog023/duolist/storage"
)

// Reconciler holds the local replica of the checklist state.
type Reconciler struct {
	mu       sync.Mutex
	snapshot *checklist.Snapshot
	user     string
	logger   *slog.Logger
	cache    storage.SnapshotStore
	lastSync time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// WithCache persists the replica snapshot after each reconcile so a
// restart can show the last known state before the first poll lands.
func WithCache(cache storage.SnapshotStore) Option {
	return func(r *Reconciler) { r.cache = cache }
}

// NewReconciler creates a replica for the given local user.
func NewReconciler(user string, opts ...Option) *Reconciler {
	r := &Reconciler{
		snapshot: &checklist.Snapshot{},
		user:     user,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// User returns the local user identity.
func (r *Reconciler) User() string { return r.user }

// Snapshot returns a deep copy of the current replica state.
func (r *Reconciler) Snapshot() *checklist.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot.Clone()
}

// LastSync returns when the replica last reconciled with the server.
func (r *Reconciler) LastSync() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSync
}

// RestoreFromCache loads the cached snapshot, if any. Called once at
// startup; a missing cache is not an error.
func (r *Reconciler) RestoreFromCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	snap, err := r.cache.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			return nil
		}
		return err
	}
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()
	return nil
}

// ProposeLocal adds a proposal optimistically under a temporary ID.
// The task is rendered immediately; the reconcile that follows the
// server acknowledging the proposal replaces it with the real one.
func (r *Reconciler) ProposeLocal(title, description string) *checklist.Task {
	task := &checklist.Task{
		ID:          checklist.NewTempID(),
		Title:       title,
		Description: description,
		ProposedBy:  r.user,
		ProposedAt:  time.Now(),
		Validations: []string{r.user},
		Status:      checklist.StatusPending,
	}

	r.mu.Lock()
	r.snapshot.PendingTasks = append(r.snapshot.PendingTasks, task)
	r.mu.Unlock()

	return task.Clone()
}

// ValidateLocal records the local user's approval optimistically,
// promoting the task to active if it reaches the quorum.
func (r *Reconciler) ValidateLocal(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, task := range r.snapshot.PendingTasks {
		if task.ID != taskID {
			continue
		}
		if task.ValidatedBy(r.user) {
			return
		}
		task.Validations = append(task.Validations, r.user)
		if len(task.Validations) >= checklist.Quorum {
			now := time.Now()
			task.Status = checklist.StatusActive
			task.ApprovedAt = &now
			r.snapshot.PendingTasks = append(r.snapshot.PendingTasks[:i], r.snapshot.PendingTasks[i+1:]...)
			r.snapshot.Tasks = append(r.snapshot.Tasks, task)
		}
		return
	}
}

// RejectLocal removes a pending task optimistically.
func (r *Reconciler) RejectLocal(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.PendingTasks = removeTask(r.snapshot.PendingTasks, taskID)
}

// CompleteLocal marks an active task done optimistically.
func (r *Reconciler) CompleteLocal(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range r.snapshot.Tasks {
		if task.ID == taskID && task.Status == checklist.StatusActive {
			now := time.Now()
			task.Status = checklist.StatusCompleted
			task.CompletedBy = r.user
			task.CompletedAt = &now
			return
		}
	}
}

// DeleteLocal removes a task optimistically from either collection.
func (r *Reconciler) DeleteLocal(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Tasks = removeTask(r.snapshot.Tasks, taskID)
	r.snapshot.PendingTasks = removeTask(r.snapshot.PendingTasks, taskID)
}

// Reconcile replaces the replica with the server's state. Local
// proposals still under a temporary ID are kept until an acknowledged
// task from the same proposer with the same title appears in the
// server snapshot, so the proposal never flickers out of the list.
// Each server record consumes at most one temporary entry, in
// creation order: when the same title was proposed twice in quick
// succession, the first acknowledgment drops only the first entry.
func (r *Reconciler) Reconcile(ctx context.Context, server *checklist.Snapshot) {
	if server == nil {
		return
	}

	r.mu.Lock()

	acknowledged := serverProposalCounts(server)
	var kept []*checklist.Task
	for _, task := range r.snapshot.PendingTasks {
		if !checklist.IsTempID(task.ID) {
			continue
		}
		key := proposalKey(task.ProposedBy, task.Title)
		if acknowledged[key] > 0 {
			acknowledged[key]--
			continue
		}
		kept = append(kept, task)
	}

	next := server.Clone()
	next.PendingTasks = append(next.PendingTasks, kept...)
	r.snapshot = next
	r.lastSync = time.Now()

	cached := next.Clone()
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.Save(ctx, cached); err != nil {
			r.logger.Warn("failed to cache replica snapshot", "error", err)
		}
	}
}

func proposalKey(proposedBy, title string) string {
	return proposedBy + "\x00" + title
}

func serverProposalCounts(server *checklist.Snapshot) map[string]int {
	counts := make(map[string]int, len(server.PendingTasks)+len(server.Tasks))
	for _, task := range server.PendingTasks {
		counts[proposalKey(task.ProposedBy, task.Title)]++
	}
	for _, task := range server.Tasks {
		counts[proposalKey(task.ProposedBy, task.Title)]++
	}
	return counts
}

func removeTask(tasks []*checklist.Task, taskID string) []*checklist.Task {
	for i, task := range tasks {
		if task.ID == taskID {
			return append(tasks[:i], tasks[i+1:]...)
		}
	}
	return tasks
}
