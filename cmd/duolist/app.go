package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/Czernobog023/duolist/checklist"
	"github.com/Czernobog023/duolist/config"
	"github.com/Czernobog023/duolist/httpapi"
	"github.com/Czernobog023/duolist/notify"
	"github.com/Czernobog023/duolist/storage"
)

// App wires the server together: NATS for event notification, the
// checklist store, snapshot persistence, and the HTTP component.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	store     *checklist.Store
	publisher *notify.Publisher
	persist   storage.SnapshotStore
	component *httpapi.Component
}

// NewApp creates an application instance from config.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// Start brings up NATS, persistence, the store, and the HTTP server.
// persistMode is "file", "kv", or "none".
func (a *App) Start(ctx context.Context, persistMode string) error {
	if err := a.startNATS(ctx); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	if err := a.initPersistence(ctx, persistMode); err != nil {
		return err
	}

	a.publisher = notify.NewPublisher(a.natsConn, a.logger)
	a.store = checklist.NewStore(
		checklist.WithUsers(a.cfg.Users),
		checklist.WithEventSink(a.publisher.Sink()),
	)

	opts := []httpapi.Option{httpapi.WithLogger(a.logger)}
	if a.persist != nil {
		opts = append(opts, httpapi.WithPersistence(a.persist))
	}
	a.component = httpapi.NewComponent(a.cfg.Server.Addr, a.store, opts...)

	if err := a.component.RestoreFromPersistence(ctx); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	if err := a.component.Start(ctx); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}

	a.logger.Info("Duolist server ready",
		"addr", a.cfg.Server.Addr,
		"users", a.cfg.Users,
		"persistence", persistMode)
	return nil
}

func (a *App) startNATS(ctx context.Context) error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else if a.cfg.NATS.Embedded {
		a.logger.Info("Starting embedded NATS server")
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}

		a.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		// Events disabled; the server runs fine without them.
		a.logger.Info("NATS disabled, events will not be published")
		return nil
	}

	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js

	return nil
}

func (a *App) initPersistence(ctx context.Context, mode string) error {
	switch mode {
	case "file":
		a.persist = storage.NewFileStore(a.cfg.Server.DataFile, a.logger)
	case "kv":
		if a.js == nil {
			return fmt.Errorf("kv persistence requires NATS")
		}
		kv, err := storage.NewKVStore(ctx, a.js)
		if err != nil {
			return fmt.Errorf("initialize KV persistence: %w", err)
		}
		a.persist = kv
	case "none":
		// In-memory only.
	default:
		return fmt.Errorf("unknown persistence mode %q (want file, kv, or none)", mode)
	}
	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	if a.component != nil {
		if err := a.component.Stop(timeout); err != nil {
			a.logger.Error("Error stopping HTTP server", "error", err)
		}
	}

	if a.natsConn != nil {
		a.natsConn.Drain()
		a.natsConn.Close()
	}

	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}

	a.logger.Info("Duolist shutdown complete")
}

func serveCmd(flags *rootFlags) *cobra.Command {
	var persistMode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the duolist server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			app := NewApp(cfg, slog.Default())

			signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer signalCancel()

			if err := app.Start(signalCtx, persistMode); err != nil {
				return err
			}

			fmt.Printf("Listening on %s (users: %v)\n", cfg.Server.Addr, cfg.Users)

			<-signalCtx.Done()
			slog.Info("Received shutdown signal")

			app.Shutdown(10 * time.Second)
			return nil
		},
	}

	cmd.Flags().StringVar(&persistMode, "persist", "file", "Snapshot persistence: file, kv, or none")
	return cmd
}
