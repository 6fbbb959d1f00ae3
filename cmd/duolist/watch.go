package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Czernobog023/duolist/checklist"
	"github.com/Czernobog023/duolist/replica"
	"github.com/Czernobog023/duolist/storage"
)

// watchCmd runs the replica poller and prints lifecycle changes as
// they land, comparing each reconciled snapshot against the previous
// one. The replica snapshot is cached locally so the next invocation
// can render the last known state immediately.
func watchCmd(flags *rootFlags) *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the list and print changes as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			user, err := requireUser(cfg)
			if err != nil {
				return err
			}

			c := newClient(cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := waitForServer(ctx, c, 5*time.Second); err != nil {
				return fmt.Errorf("server not reachable: %w", err)
			}

			opts := []replica.Option{}
			if cachePath != "" {
				cache := storage.NewFileStore(filepath.Clean(cachePath), nil)
				opts = append(opts, replica.WithCache(cache))
			}
			rec := replica.NewReconciler(user, opts...)
			if err := rec.RestoreFromCache(ctx); err != nil {
				fmt.Printf("warning: could not restore cached state: %v\n", err)
			}

			previous := rec.Snapshot()
			renderSnapshot(previous)

			poller := replica.NewPoller(c, rec,
				replica.WithInterval(cfg.Sync.PollInterval),
				replica.WithFetchTimeout(cfg.Sync.RequestTimeout),
			)
			go poller.Run(ctx)

			fmt.Printf("Watching as %s (poll every %s, Ctrl+C to stop)\n\n", user, cfg.Sync.PollInterval)

			ticker := time.NewTicker(250 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					fmt.Println("\nStopped watching.")
					return nil
				case <-ticker.C:
					current := rec.Snapshot()
					printChanges(previous, current)
					previous = current
				}
			}
		},
	}

	cmd.Flags().StringVar(&cachePath, "cache", "", "Replica cache file (default: none)")
	return cmd
}

// printChanges prints one line per task whose lifecycle state changed
// between two snapshots.
func printChanges(before, after *checklist.Snapshot) {
	prev := indexTasks(before)

	for _, task := range after.PendingTasks {
		old, seen := prev[task.ID]
		switch {
		case !seen:
			fmt.Printf("+ proposed: %q by %s\n", task.Title, task.ProposedBy)
		case len(task.Validations) != len(old.Validations):
			fmt.Printf("~ validated: %q (%d/%d)\n", task.Title, len(task.Validations), checklist.Quorum)
		}
		delete(prev, task.ID)
	}

	for _, task := range after.Tasks {
		old, seen := prev[task.ID]
		switch {
		case !seen:
			fmt.Printf("* active: %q\n", task.Title)
		case old.Status != task.Status && task.Status == checklist.StatusCompleted:
			fmt.Printf("x completed: %q by %s\n", task.Title, task.CompletedBy)
		case old.Status != task.Status && task.Status == checklist.StatusActive:
			fmt.Printf("* active: %q\n", task.Title)
		}
		delete(prev, task.ID)
	}

	for _, old := range prev {
		fmt.Printf("- removed: %q\n", old.Title)
	}
}

func indexTasks(snap *checklist.Snapshot) map[string]*checklist.Task {
	index := make(map[string]*checklist.Task, len(snap.Tasks)+len(snap.PendingTasks))
	for _, task := range snap.Tasks {
		index[task.ID] = task
	}
	for _, task := range snap.PendingTasks {
		index[task.ID] = task
	}
	return index
}
