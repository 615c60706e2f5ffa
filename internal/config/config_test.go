package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.Engine.MaxIterations != 5 {
		t.Errorf("Engine.MaxIterations = %d, want 5", cfg.Engine.MaxIterations)
	}
	if cfg.Engine.GenerationTimeout != 120*time.Second {
		t.Errorf("GenerationTimeout = %v, want 120s", cfg.Engine.GenerationTimeout)
	}
	if cfg.Engine.JudgeTimeout != 60*time.Second {
		t.Errorf("JudgeTimeout = %v, want 60s", cfg.Engine.JudgeTimeout)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port = %d, want 8080", cfg.Web.Port)
	}
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("Web.Host = %q, want 127.0.0.1", cfg.Web.Host)
	}
	if !cfg.Notifications.Desktop {
		t.Error("desktop notifications should be enabled by default")
	}
}

func TestLoad_FromFile(t *testing.T) {
	configPath := writeTempConfig(t, `
[general]
database_path = "/test/runs.db"
rubric_dir = "/test/rubrics"

[engine]
max_iterations = 3
generation_timeout = 30000000000

[web]
port = 9000
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.DatabasePath != "/test/runs.db" {
		t.Errorf("DatabasePath = %q, want /test/runs.db", cfg.General.DatabasePath)
	}
	if cfg.Engine.MaxIterations != 3 {
		t.Errorf("MaxIterations = %d, want 3", cfg.Engine.MaxIterations)
	}
	if cfg.Engine.GenerationTimeout != 30*time.Second {
		t.Errorf("GenerationTimeout = %v, want 30s", cfg.Engine.GenerationTimeout)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("Web.Port = %d, want 9000", cfg.Web.Port)
	}
	// Sections absent from the file keep their defaults
	if cfg.Engine.JudgeTimeout != 60*time.Second {
		t.Errorf("JudgeTimeout = %v, want default 60s", cfg.Engine.JudgeTimeout)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port = %d, want default 8080", cfg.Web.Port)
	}
}

func TestLoad_InvalidRetentionCron(t *testing.T) {
	configPath := writeTempConfig(t, `
[retention]
cron = "whenever"
`)
	if _, err := Load(configPath); err == nil {
		t.Error("invalid retention cron accepted")
	}
}

func TestEngineConfig_Overrides(t *testing.T) {
	cfg := Default()
	cfg.Engine.MaxIterations = 2
	cfg.Engine.ChangeQueueBound = 4

	ecfg := cfg.EngineConfig()
	if ecfg.MaxIterations != 2 {
		t.Errorf("MaxIterations = %d, want 2", ecfg.MaxIterations)
	}
	if ecfg.ChangeQueueBound != 4 {
		t.Errorf("ChangeQueueBound = %d, want 4", ecfg.ChangeQueueBound)
	}
	if ecfg.GenerationTimeout != 120*time.Second {
		t.Errorf("GenerationTimeout = %v, want default 120s", ecfg.GenerationTimeout)
	}
}

func TestWebConfig_Addr(t *testing.T) {
	w := WebConfig{Host: "0.0.0.0", Port: 9000}
	if got := w.Addr(); got != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q, want 0.0.0.0:9000", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
