// Package config handles configuration loading for swarmforge.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for swarmforge.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Swarm     SwarmConfig     `mapstructure:"swarm"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// SwarmConfig holds the coordinator's pool and queue settings.
type SwarmConfig struct {
	// MaxAgents caps the agent pool size.
	MaxAgents int `mapstructure:"max_agents"`
	// ScalingThreshold is the queue depth that triggers auto-scaling.
	ScalingThreshold int `mapstructure:"scaling_threshold"`
	// IdleTimeout is how long an agent may sit idle before reclamation.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// MonitorInterval is the period of the idle-reclamation sweep.
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	// AutoScaleInterval is the period of the auto-scaling sweep.
	AutoScaleInterval time.Duration `mapstructure:"autoscale_interval"`
	// RetryDelay is the backoff before re-queueing an undispatchable task.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// QueueSize bounds the pending-task queue.
	QueueSize int `mapstructure:"queue_size"`
}

// WorkflowConfig holds planner settings.
type WorkflowConfig struct {
	// MaxSubtasks caps how many subtasks a decomposition may produce.
	MaxSubtasks int `mapstructure:"max_subtasks"`
}

// HTTPConfig holds web-fetch settings.
type HTTPConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimitDelay  time.Duration `mapstructure:"rate_limit_delay"`
	RotateUserAgent bool          `mapstructure:"rotate_user_agent"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	// Path is the SQLite database location. Empty disables persistence.
	Path string `mapstructure:"path"`
}

// LoggingConfig holds debug logging settings.
type LoggingConfig struct {
	// DebugLog is the path of the swarm debug log. Empty disables it.
	DebugLog string `mapstructure:"debug_log"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.swarmforge.yaml in current directory or a parent)
// 3. User config (~/.config/swarmforge/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("swarm.max_agents", cfg.Swarm.MaxAgents)
	v.Set("swarm.scaling_threshold", cfg.Swarm.ScalingThreshold)
	v.Set("swarm.idle_timeout", cfg.Swarm.IdleTimeout.String())
	v.Set("swarm.monitor_interval", cfg.Swarm.MonitorInterval.String())
	v.Set("swarm.autoscale_interval", cfg.Swarm.AutoScaleInterval.String())
	v.Set("swarm.retry_delay", cfg.Swarm.RetryDelay.String())
	v.Set("swarm.queue_size", cfg.Swarm.QueueSize)
	v.Set("workflow.max_subtasks", cfg.Workflow.MaxSubtasks)
	v.Set("http.timeout", cfg.HTTP.Timeout.String())
	v.Set("http.rate_limit_delay", cfg.HTTP.RateLimitDelay.String())
	v.Set("http.rotate_user_agent", cfg.HTTP.RotateUserAgent)
	v.Set("database.path", cfg.Database.Path)
	v.Set("logging.debug_log", cfg.Logging.DebugLog)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4000)

	v.SetDefault("swarm.max_agents", 10)
	v.SetDefault("swarm.scaling_threshold", 5)
	v.SetDefault("swarm.idle_timeout", "5m")
	v.SetDefault("swarm.monitor_interval", "30s")
	v.SetDefault("swarm.autoscale_interval", "10s")
	v.SetDefault("swarm.retry_delay", "500ms")
	v.SetDefault("swarm.queue_size", 256)

	v.SetDefault("workflow.max_subtasks", 10)

	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.rate_limit_delay", "1s")
	v.SetDefault("http.rotate_user_agent", true)

	v.SetDefault("database.path", "")
	v.SetDefault("logging.debug_log", "")
}

// getUserConfigDir returns the XDG config directory for swarmforge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarmforge")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarmforge")
	}
	return filepath.Join(home, ".config", "swarmforge")
}

// findProjectConfig searches for .swarmforge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".swarmforge.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4000,
		},
		Swarm: SwarmConfig{
			MaxAgents:         10,
			ScalingThreshold:  5,
			IdleTimeout:       5 * time.Minute,
			MonitorInterval:   30 * time.Second,
			AutoScaleInterval: 10 * time.Second,
			RetryDelay:        500 * time.Millisecond,
			QueueSize:         256,
		},
		Workflow: WorkflowConfig{
			MaxSubtasks: 10,
		},
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			RateLimitDelay:  time.Second,
			RotateUserAgent: true,
		},
	}
}
