package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Czernobog023/duolist/config"
)

func TestAppStartStop(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.DataFile = filepath.Join(t.TempDir(), "data.json")

	app := NewApp(cfg, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Start(ctx, "file"); err != nil {
		t.Fatalf("failed to start app: %v", err)
	}

	if app.natsConn == nil {
		t.Error("NATS connection not initialized")
	}
	if app.embeddedServer == nil {
		t.Error("Embedded NATS server not started")
	}
	if app.store == nil {
		t.Error("Store not initialized")
	}
	if app.component == nil || !app.component.Running() {
		t.Error("HTTP component not running")
	}
	if app.persist == nil {
		t.Error("Persistence not initialized")
	}

	app.Shutdown(5 * time.Second)

	if app.component.Running() {
		t.Error("HTTP component still running after shutdown")
	}
}

func TestAppKVPersistence(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"

	app := NewApp(cfg, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Start(ctx, "kv"); err != nil {
		t.Fatalf("failed to start app with kv persistence: %v", err)
	}
	defer app.Shutdown(5 * time.Second)

	if app.persist == nil {
		t.Error("KV persistence not initialized")
	}
}

func TestAppRejectsUnknownPersistMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.NATS.Embedded = false

	app := NewApp(cfg, slog.Default())

	err := app.Start(context.Background(), "cassette-tape")
	if err == nil {
		app.Shutdown(time.Second)
		t.Fatal("expected error for unknown persistence mode")
	}
}
