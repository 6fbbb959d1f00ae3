// Package httpapi exposes the checklist store over HTTP. Routes map
// 1:1 to store operations plus a read-snapshot endpoint, health,
// export/import, and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/Czernobog023/duolist/checklist"
	"github.com/Czernobog023/duolist/storage"
)

// Lifecycle states.
const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// Component runs the checklist HTTP API server.
type Component struct {
	addr    string
	store   *checklist.Store
	persist storage.SnapshotStore // nil disables persistence
	logger  *slog.Logger

	registry *prometheus.Registry
	metrics  *Metrics

	// Lifecycle state machine:
	// 0=stopped, 1=starting, 2=running, 3=stopping
	state     atomic.Int32
	startTime time.Time
	mu        sync.Mutex
	server    *http.Server
}

// Option configures a Component.
type Option func(*Component)

// WithPersistence saves the snapshot through store after every
// successful mutation and makes it available for restore.
func WithPersistence(store storage.SnapshotStore) Option {
	return func(c *Component) { c.persist = store }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Component) { c.logger = logger }
}

// NewComponent creates the HTTP API component listening on addr.
func NewComponent(addr string, store *checklist.Store, opts ...Option) *Component {
	c := &Component{
		addr:     addr,
		store:    store,
		logger:   slog.Default(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics = NewMetrics(c.registry)
	return c
}

// Handler assembles the full HTTP handler: API routes, metrics
// endpoint, and permissive CORS (the two participants reach the
// server from their own devices).
func (c *Component) Handler() http.Handler {
	mux := http.NewServeMux()
	c.RegisterHTTPHandlers("api", mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)
}

// Start begins serving. It returns once the listener is accepting or
// the component fails to bind.
func (c *Component) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateStopped, stateStarting) {
		return fmt.Errorf("component already running or starting")
	}

	srv := &http.Server{
		Addr:              c.addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	c.mu.Lock()
	c.server = srv
	c.startTime = time.Now()
	c.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Give the listener a beat to fail on bind errors before we
	// declare ourselves running.
	select {
	case err := <-errCh:
		c.state.Store(stateStopped)
		return fmt.Errorf("listen on %s: %w", c.addr, err)
	case <-time.After(100 * time.Millisecond):
	}

	c.state.Store(stateRunning)
	c.logger.Info("HTTP API started", "addr", c.addr)
	return nil
}

// Stop gracefully shuts the server down within timeout.
func (c *Component) Stop(timeout time.Duration) error {
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		return nil
	}

	c.mu.Lock()
	srv := c.server
	c.server = nil
	c.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			c.state.Store(stateStopped)
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	c.state.Store(stateStopped)
	c.logger.Info("HTTP API stopped")
	return nil
}

// Running reports whether the component is serving.
func (c *Component) Running() bool {
	return c.state.Load() == stateRunning
}

// RestoreFromPersistence loads the saved snapshot, if any, into the
// store. Called once before Start.
func (c *Component) RestoreFromPersistence(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	snap, err := c.persist.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			return nil
		}
		return err
	}
	c.store.Restore(snap)
	c.metrics.Observe(snap)
	c.logger.Info("Restored snapshot",
		"tasks", len(snap.Tasks),
		"pending", len(snap.PendingTasks),
		"revision", snap.Revision)
	return nil
}

// saveSnapshot persists current state after a successful mutation.
// Persistence is last-write-wins and best effort: a failed save is
// logged, never surfaced to the caller whose operation already
// applied.
func (c *Component) saveSnapshot(ctx context.Context) {
	snap := c.store.Snapshot()
	c.metrics.Observe(snap)
	if c.persist == nil {
		return
	}
	if err := c.persist.Save(ctx, snap); err != nil {
		c.logger.Warn("Failed to persist snapshot", "error", err)
	}
}
