package replica

import (
	"context"
	"log/slog"
	"time"

	"github.com/Czernobog023/duolist/checklist"
)

// Fetcher retrieves the authoritative state from the server.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (*checklist.Snapshot, error)
}

const (
	defaultInterval = 3 * time.Second
	defaultTimeout  = 5 * time.Second
)

// Poller periodically pulls the server snapshot into a Reconciler.
// Fetch failures are logged and skipped; the replica keeps serving its
// last known state until the server is reachable again.
type Poller struct {
	fetcher    Fetcher
	reconciler *Reconciler
	interval   time.Duration
	timeout    time.Duration
	force      chan struct{}
	logger     *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithFetchTimeout sets the per-fetch timeout.
func WithFetchTimeout(d time.Duration) PollerOption {
	return func(p *Poller) { p.timeout = d }
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = logger }
}

// NewPoller creates a poller feeding the reconciler.
func NewPoller(fetcher Fetcher, reconciler *Reconciler, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:    fetcher,
		reconciler: reconciler,
		interval:   defaultInterval,
		timeout:    defaultTimeout,
		force:      make(chan struct{}, 1),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Trigger requests an immediate poll, typically right after a local
// mutation was sent to the server. Non-blocking; a trigger while one
// is already queued is collapsed into it.
func (p *Poller) Trigger() {
	select {
	case p.force <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled. It fetches once immediately so
// the replica does not wait a full interval for its first state.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		case <-p.force:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snap, err := p.fetcher.FetchSnapshot(fetchCtx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("poll failed, keeping local state", "error", err)
		}
		return
	}
	p.reconciler.Reconcile(ctx, snap)
}
