package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swarmforge/swarmforge/internal/config"
	"github.com/swarmforge/swarmforge/internal/state"
	"github.com/swarmforge/swarmforge/pkg/models"
)

var statusDBPath string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted task outcomes",
	Long: `Display counts and recent failures from the task store.

The store location comes from --db, then the database.path config key,
then the default data directory.`,
	RunE: runStatusCmd,
}

func init() {
	statusCmd.Flags().StringVar(&statusDBPath, "db", "", "SQLite path of the task store")
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	dbPath := statusDBPath
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dbPath = cfg.Database.Path
	}
	if dbPath == "" {
		dbPath = state.DefaultPath()
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No task store found. Run with persistence enabled first:")
		fmt.Println("  swarmforge run --db swarm.db \"some task\"")
		return nil
	}

	store, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()

	counts, err := store.CountByStatus()
	if err != nil {
		return err
	}

	fmt.Printf("Task store: %s\n\n", store.Path())
	fmt.Printf("  %s %d\n", color.GreenString("completed:"), counts[models.TaskStatusCompleted])
	fmt.Printf("  %s %d\n", color.RedString("failed:   "), counts[models.TaskStatusFailed])
	fmt.Printf("  pending:   %d\n", counts[models.TaskStatusPending])
	fmt.Printf("  running:   %d\n", counts[models.TaskStatusInProgress])

	failedIDs, err := store.ListByStatus(models.TaskStatusFailed)
	if err != nil {
		return err
	}
	if len(failedIDs) == 0 {
		return nil
	}

	fmt.Println("\nFailed tasks:")
	for _, id := range failedIDs {
		task, err := store.GetTask(id)
		if err != nil {
			return err
		}
		fmt.Printf("  %s  %s\n    %s\n", id[:8], task.Description, task.Error)
	}
	return nil
}
