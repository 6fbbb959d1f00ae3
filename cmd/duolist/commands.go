package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Czernobog023/duolist/checklist"
	"github.com/Czernobog023/duolist/client"
	"github.com/Czernobog023/duolist/config"
)

// newClient builds the API client from config.
func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.Client.ServerURL, client.WithTimeout(cfg.Sync.RequestTimeout))
}

// requireUser resolves the acting user, failing when none is set.
func requireUser(cfg *config.Config) (string, error) {
	if cfg.User == "" {
		return "", fmt.Errorf("no acting user set (use --user, the %s env var, or the config file)", config.EnvUser)
	}
	return cfg.User, nil
}

func proposeCmd(flags *rootFlags) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "propose <title>",
		Short: "Propose a new task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			user, err := requireUser(cfg)
			if err != nil {
				return err
			}

			title := strings.Join(args, " ")
			task, err := newClient(cfg).Propose(cmd.Context(), title, description, user)
			if err != nil {
				return err
			}

			fmt.Printf("Proposed %q (id %s)\n", task.Title, task.ID)
			fmt.Printf("Waiting for validation from the other participant.\n")
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	return cmd
}

func validateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <task-id>",
		Short: "Validate a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			user, err := requireUser(cfg)
			if err != nil {
				return err
			}

			res, err := newClient(cfg).Validate(cmd.Context(), args[0], user)
			if err != nil {
				return err
			}

			if res.Approved {
				fmt.Printf("Task %q approved, now active.\n", res.Task.Title)
			} else {
				fmt.Printf("Validation recorded for %q (%d of %d).\n",
					res.Task.Title, res.Validations, checklist.Quorum)
			}
			return nil
		},
	}
}

func rejectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <task-id>",
		Short: "Reject a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			user, err := requireUser(cfg)
			if err != nil {
				return err
			}

			task, err := newClient(cfg).Reject(cmd.Context(), args[0], user)
			if err != nil {
				return err
			}

			fmt.Printf("Rejected %q.\n", task.Title)
			return nil
		},
	}
}

func completeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark an active task as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			user, err := requireUser(cfg)
			if err != nil {
				return err
			}

			task, err := newClient(cfg).Complete(cmd.Context(), args[0], user)
			if err != nil {
				return err
			}

			fmt.Printf("Completed %q.\n", task.Title)
			return nil
		},
	}
}

func deleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			user, err := requireUser(cfg)
			if err != nil {
				return err
			}

			task, err := newClient(cfg).Delete(cmd.Context(), args[0], user)
			if err != nil {
				return err
			}

			fmt.Printf("Deleted %q.\n", task.Title)
			return nil
		},
	}
}

func statusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show all tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			snap, err := newClient(cfg).FetchSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			renderSnapshot(snap)
			return nil
		},
	}
}

func renderSnapshot(snap *checklist.Snapshot) {
	fmt.Printf("Participants: %s\n\n", strings.Join(snap.Users, ", "))

	if len(snap.PendingTasks) > 0 {
		fmt.Println("Pending validation:")
		for _, task := range snap.PendingTasks {
			fmt.Printf("  [%d/%d] %s  %s (proposed by %s)\n",
				len(task.Validations), checklist.Quorum, task.ID, task.Title, task.ProposedBy)
		}
		fmt.Println()
	}

	var active, completed []*checklist.Task
	for _, task := range snap.Tasks {
		if task.Status == checklist.StatusCompleted {
			completed = append(completed, task)
		} else {
			active = append(active, task)
		}
	}

	if len(active) > 0 {
		fmt.Println("Active:")
		for _, task := range active {
			fmt.Printf("  [ ] %s  %s\n", task.ID, task.Title)
		}
		fmt.Println()
	}

	if len(completed) > 0 {
		fmt.Println("Completed:")
		for _, task := range completed {
			fmt.Printf("  [x] %s  %s (by %s)\n", task.ID, task.Title, task.CompletedBy)
		}
		fmt.Println()
	}

	if len(snap.PendingTasks) == 0 && len(snap.Tasks) == 0 {
		fmt.Println("The list is empty.")
	}
}

func exportCmd(flags *rootFlags) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full list as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			payload, err := newClient(cfg).Export(cmd.Context())
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Printf("Exported %d tasks and %d proposals to %s\n",
				len(payload.Tasks), len(payload.PendingTasks), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func importCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a previously exported list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}

			var payload checklist.ExportPayload
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("parse import file: %w", err)
			}

			res, err := newClient(cfg).Import(cmd.Context(), &payload)
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d tasks and %d proposals.\n", res.TasksAdded, res.PendingAdded)
			return nil
		},
	}
}

// waitForServer polls the health endpoint until the server answers,
// so client commands that follow serve in a script do not race it.
func waitForServer(ctx context.Context, c *client.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := c.Health(ctx); err == nil {
			return nil
		} else if time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
