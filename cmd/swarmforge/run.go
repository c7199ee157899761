package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swarmforge/swarmforge/internal/config"
	"github.com/swarmforge/swarmforge/internal/llm"
	"github.com/swarmforge/swarmforge/internal/state"
	"github.com/swarmforge/swarmforge/internal/swarm"
	"github.com/swarmforge/swarmforge/internal/web"
	"github.com/swarmforge/swarmforge/pkg/models"
)

var (
	runMaxAgents int
	runPriority  string
	runParams    []string
	runTimeout   time.Duration
	runDBPath    string
)

var runCmd = &cobra.Command{
	Use:   "run <task> [task...]",
	Short: "Run tasks on the swarm",
	Long: `Submit one or more task descriptions to the swarm and wait for them
to finish.

Each task is routed to an agent variant by keywords in its description
(scrape, research, code, write, ...). Agents are created on demand up to
the pool limit; excess queued tasks trigger auto-scaling.

Examples:
  swarmforge run "research quantum computing trends"
  swarmforge run --param url=https://example.com "scrape example.com"
  swarmforge run --priority high "write an article about Go generics"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSwarm,
}

func init() {
	runCmd.Flags().IntVar(&runMaxAgents, "max-agents", 0, "Override the agent pool limit")
	runCmd.Flags().StringVar(&runPriority, "priority", "medium", "Task priority (low, medium, high, critical)")
	runCmd.Flags().StringArrayVar(&runParams, "param", nil, "Task parameter as key=value (repeatable)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "Overall run timeout")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "SQLite path for task persistence (overrides config)")
}

func runSwarm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMaxAgents > 0 {
		cfg.Swarm.MaxAgents = runMaxAgents
	}

	priority, err := parsePriority(runPriority)
	if err != nil {
		return err
	}
	params, err := parseParams(runParams)
	if err != nil {
		return err
	}

	var completer llm.Completer
	client, err := llm.NewClient(llm.ClientConfig{
		Model:        anthropic.Model(cfg.Anthropic.Model),
		APIKey:       cfg.Anthropic.APIKey,
		MaxTokens:    int64(cfg.Anthropic.MaxTokens),
		CacheEnabled: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v; language-model work will be degraded or fail\n",
			color.YellowString("warning:"), err)
	} else {
		completer = client
	}

	fetcher := web.NewHTTPFetcher(web.HTTPConfig{
		Timeout:         cfg.HTTP.Timeout,
		RateLimitDelay:  cfg.HTTP.RateLimitDelay,
		RotateUserAgent: cfg.HTTP.RotateUserAgent,
	})

	opts := []swarm.Option{}
	if cfg.Logging.DebugLog != "" {
		logger, err := swarm.NewDebugLogger(cfg.Logging.DebugLog)
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer logger.Close()
		opts = append(opts, swarm.WithLogger(logger))
	}

	dbPath := cfg.Database.Path
	if runDBPath != "" {
		dbPath = runDBPath
	}
	if dbPath != "" {
		store, err := state.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open task store: %w", err)
		}
		defer store.Close()
		opts = append(opts, swarm.WithStore(store))
	}

	factory := swarm.NewFactory(completer, fetcher)
	coordinator := swarm.NewCoordinator(swarm.Config{
		MaxAgents:         cfg.Swarm.MaxAgents,
		ScalingThreshold:  cfg.Swarm.ScalingThreshold,
		IdleTimeout:       cfg.Swarm.IdleTimeout,
		MonitorInterval:   cfg.Swarm.MonitorInterval,
		AutoScaleInterval: cfg.Swarm.AutoScaleInterval,
		RetryDelay:        cfg.Swarm.RetryDelay,
		QueueSize:         cfg.Swarm.QueueSize,
	}, factory, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := coordinator.Start(ctx); err != nil {
		return err
	}
	defer coordinator.Stop()

	var tasks []*models.Task
	for _, description := range args {
		task := models.NewTask(description)
		task.Priority = priority
		for k, v := range params {
			task.Parameters[k] = v
		}
		if err := coordinator.Submit(task); err != nil {
			return err
		}
		tasks = append(tasks, task)
		fmt.Printf("queued %s  %s\n", task.ID[:8], description)
	}

	if err := coordinator.WaitForCompletion(ctx); err != nil {
		return fmt.Errorf("swarm run: %w", err)
	}

	fmt.Println()
	failures := 0
	for _, task := range tasks {
		result, err := coordinator.Result(task.ID)
		if err != nil {
			return err
		}
		if result.Status == models.TaskStatusCompleted {
			fmt.Printf("%s %s  %s\n", color.GreenString("✓"), task.ID[:8], task.Description)
		} else {
			failures++
			fmt.Printf("%s %s  %s\n    %s\n", color.RedString("✗"), task.ID[:8], task.Description, result.Error)
		}
	}

	status := coordinator.Status()
	fmt.Printf("\n%d completed, %d failed, %d agents used\n",
		status.CompletedTasks, status.FailedTasks, status.AgentCount)

	if failures > 0 {
		return fmt.Errorf("%d of %d tasks failed", failures, len(tasks))
	}
	return nil
}

func parsePriority(s string) (models.TaskPriority, error) {
	switch strings.ToLower(s) {
	case "low":
		return models.PriorityLow, nil
	case "medium":
		return models.PriorityMedium, nil
	case "high":
		return models.PriorityHigh, nil
	case "critical":
		return models.PriorityCritical, nil
	default:
		return 0, fmt.Errorf("unknown priority %q (want low, medium, high or critical)", s)
	}
}

func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q (want key=value)", pair)
		}
		params[key] = value
	}
	return params, nil
}
