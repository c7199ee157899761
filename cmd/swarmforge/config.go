package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/swarmforge/swarmforge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify swarmforge configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/swarmforge/config.yaml
Project-specific overrides can be placed in .swarmforge.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.max_tokens: %d\n", cfg.Anthropic.MaxTokens)
	fmt.Printf("swarm.max_agents: %d\n", cfg.Swarm.MaxAgents)
	fmt.Printf("swarm.scaling_threshold: %d\n", cfg.Swarm.ScalingThreshold)
	fmt.Printf("swarm.idle_timeout: %s\n", cfg.Swarm.IdleTimeout)
	fmt.Printf("swarm.monitor_interval: %s\n", cfg.Swarm.MonitorInterval)
	fmt.Printf("swarm.autoscale_interval: %s\n", cfg.Swarm.AutoScaleInterval)
	fmt.Printf("swarm.retry_delay: %s\n", cfg.Swarm.RetryDelay)
	fmt.Printf("swarm.queue_size: %d\n", cfg.Swarm.QueueSize)
	fmt.Printf("workflow.max_subtasks: %d\n", cfg.Workflow.MaxSubtasks)
	fmt.Printf("http.timeout: %s\n", cfg.HTTP.Timeout)
	fmt.Printf("http.rate_limit_delay: %s\n", cfg.HTTP.RateLimitDelay)
	fmt.Printf("http.rotate_user_agent: %t\n", cfg.HTTP.RotateUserAgent)
	fmt.Printf("database.path: %s\n", cfg.Database.Path)
	fmt.Printf("logging.debug_log: %s\n", cfg.Logging.DebugLog)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.max_tokens":
		return strconv.Itoa(cfg.Anthropic.MaxTokens), nil
	case "swarm.max_agents":
		return strconv.Itoa(cfg.Swarm.MaxAgents), nil
	case "swarm.scaling_threshold":
		return strconv.Itoa(cfg.Swarm.ScalingThreshold), nil
	case "swarm.idle_timeout":
		return cfg.Swarm.IdleTimeout.String(), nil
	case "swarm.monitor_interval":
		return cfg.Swarm.MonitorInterval.String(), nil
	case "swarm.autoscale_interval":
		return cfg.Swarm.AutoScaleInterval.String(), nil
	case "swarm.retry_delay":
		return cfg.Swarm.RetryDelay.String(), nil
	case "swarm.queue_size":
		return strconv.Itoa(cfg.Swarm.QueueSize), nil
	case "workflow.max_subtasks":
		return strconv.Itoa(cfg.Workflow.MaxSubtasks), nil
	case "http.timeout":
		return cfg.HTTP.Timeout.String(), nil
	case "http.rate_limit_delay":
		return cfg.HTTP.RateLimitDelay.String(), nil
	case "http.rotate_user_agent":
		return strconv.FormatBool(cfg.HTTP.RotateUserAgent), nil
	case "database.path":
		return cfg.Database.Path, nil
	case "logging.debug_log":
		return cfg.Logging.DebugLog, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.max_tokens":
		return setIntValue(&cfg.Anthropic.MaxTokens, value)
	case "swarm.max_agents":
		return setIntValue(&cfg.Swarm.MaxAgents, value)
	case "swarm.scaling_threshold":
		return setIntValue(&cfg.Swarm.ScalingThreshold, value)
	case "swarm.idle_timeout":
		return setDurationValue(&cfg.Swarm.IdleTimeout, value)
	case "swarm.monitor_interval":
		return setDurationValue(&cfg.Swarm.MonitorInterval, value)
	case "swarm.autoscale_interval":
		return setDurationValue(&cfg.Swarm.AutoScaleInterval, value)
	case "swarm.retry_delay":
		return setDurationValue(&cfg.Swarm.RetryDelay, value)
	case "swarm.queue_size":
		return setIntValue(&cfg.Swarm.QueueSize, value)
	case "workflow.max_subtasks":
		return setIntValue(&cfg.Workflow.MaxSubtasks, value)
	case "http.timeout":
		return setDurationValue(&cfg.HTTP.Timeout, value)
	case "http.rate_limit_delay":
		return setDurationValue(&cfg.HTTP.RateLimitDelay, value)
	case "http.rotate_user_agent":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		cfg.HTTP.RotateUserAgent = b
	case "database.path":
		cfg.Database.Path = value
	case "logging.debug_log":
		cfg.Logging.DebugLog = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setIntValue(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer %q", value)
	}
	*dst = n
	return nil
}

func setDurationValue(dst *time.Duration, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration %q", value)
	}
	*dst = d
	return nil
}
