package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/alchemi/discovery-orchestrator/internal/engine"
	"github.com/alchemi/discovery-orchestrator/internal/retention"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Engine        EngineConfig        `toml:"engine"`
	Notifications NotificationsConfig `toml:"notifications"`
	Retention     retention.Config    `toml:"retention"`
	Web           WebConfig           `toml:"web"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
	RubricDir    string `toml:"rubric_dir"`
}

// EngineConfig holds discovery pipeline limits
type EngineConfig struct {
	MaxIterations      int           `toml:"max_iterations"`
	GenerationTimeout  time.Duration `toml:"generation_timeout"`
	JudgeTimeout       time.Duration `toml:"judge_timeout"`
	TranslationTimeout time.Duration `toml:"translation_timeout"`
	HeartbeatInterval  time.Duration `toml:"heartbeat_interval"`
	ChangeQueueBound   int           `toml:"change_queue_bound"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds API server settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Addr returns the listen address
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	ecfg := engine.DefaultConfig()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".discovery-orchestrator", "runs.db"),
			RubricDir:    filepath.Join(home, ".discovery-orchestrator", "rubrics"),
		},
		Engine: EngineConfig{
			MaxIterations:      ecfg.MaxIterations,
			GenerationTimeout:  ecfg.GenerationTimeout,
			JudgeTimeout:       ecfg.JudgeTimeout,
			TranslationTimeout: ecfg.TranslationTimeout,
			HeartbeatInterval:  ecfg.HeartbeatInterval,
			ChangeQueueBound:   ecfg.ChangeQueueBound,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
		Retention: retention.Config{
			Cron: "0 3 * * *",
			Age:  30 * 24 * time.Hour,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.RubricDir = ExpandPath(cfg.General.RubricDir)

	if err := cfg.Retention.Validate(); err != nil {
		return nil, fmt.Errorf("retention: %w", err)
	}

	return cfg, nil
}

// EngineConfig converts the TOML section into the engine's limits,
// leaving zero fields to the engine's defaults
func (c *Config) EngineConfig() engine.Config {
	ecfg := engine.DefaultConfig()
	if c.Engine.MaxIterations > 0 {
		ecfg.MaxIterations = c.Engine.MaxIterations
	}
	if c.Engine.GenerationTimeout > 0 {
		ecfg.GenerationTimeout = c.Engine.GenerationTimeout
	}
	if c.Engine.JudgeTimeout > 0 {
		ecfg.JudgeTimeout = c.Engine.JudgeTimeout
	}
	if c.Engine.TranslationTimeout > 0 {
		ecfg.TranslationTimeout = c.Engine.TranslationTimeout
	}
	if c.Engine.HeartbeatInterval > 0 {
		ecfg.HeartbeatInterval = c.Engine.HeartbeatInterval
	}
	if c.Engine.ChangeQueueBound > 0 {
		ecfg.ChangeQueueBound = c.Engine.ChangeQueueBound
	}
	return ecfg
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "discovery-orchestrator", "config.toml")
}
