package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/swarmforge/swarmforge/internal/config"
	"github.com/swarmforge/swarmforge/internal/workflow"
	"github.com/swarmforge/swarmforge/pkg/models"
)

var (
	planMaxSubtasks int
	planAsYAML      bool
)

var planCmd = &cobra.Command{
	Use:   "plan <task>",
	Short: "Decompose a task into a workflow without executing it",
	Long: `Build the execution plan for a task: subtask decomposition,
dependency phases, priority assignment, and a duration estimate.

The plan is printed as a readable summary, or as YAML with --yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().IntVar(&planMaxSubtasks, "max-subtasks", 0, "Cap on generated subtasks (0 uses config)")
	planCmd.Flags().BoolVar(&planAsYAML, "yaml", false, "Print the full plan as YAML")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	maxSubtasks := cfg.Workflow.MaxSubtasks
	if planMaxSubtasks > 0 {
		maxSubtasks = planMaxSubtasks
	}

	task := models.NewTask(args[0])
	plan := workflow.BuildPlan(task, maxSubtasks)

	if planAsYAML {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(plan)
	}

	if plan.Direct {
		fmt.Printf("Task %q needs no decomposition; it would run on a single agent.\n", task.Description)
		return nil
	}

	fmt.Printf("Plan for %q (%d subtasks)\n\n", task.Description, len(plan.Subtasks))
	for i, phase := range plan.Phases {
		parallel := ""
		if phase.CanRunParallel {
			parallel = color.CyanString(" (parallel)")
		}
		fmt.Printf("Phase %d%s\n", i+1, parallel)
		for _, desc := range phase.Tasks {
			fmt.Printf("  - %s\n", desc)
		}
	}

	fmt.Println("\nDispatch order:")
	for _, sub := range plan.Prioritized {
		fmt.Printf("  [%s] %s\n", sub.Priority, sub.Description)
	}
	fmt.Printf("\nEstimated duration: %.1f minutes\n", plan.Estimate.Minutes)
	if plan.Degenerate {
		fmt.Println(color.YellowString("warning: dependency cycle detected, ordering is best-effort"))
	}
	return nil
}
