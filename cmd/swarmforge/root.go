package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swarmforge",
	Short: "Agent swarm task engine",
	Long: `Swarmforge runs a self-scaling swarm of specialized agents over a
queue of tasks.

Tasks are routed to capable agents by capability matching, new agents are
created on demand up to a pool limit, and composite tasks can be decomposed
into dependency-ordered workflows before execution.

Core capabilities:
- Keyword-routed agent creation (research, scraping, coding, writing, ...)
- Dependency-aware dispatch with failure cascade
- Auto-scaling under queue pressure and idle agent reclamation
- Workflow planning: decomposition, phases, priorities, duration estimates`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
