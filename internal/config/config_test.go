package config

import (
	"testing"

	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestGetAppliesDefaults(t *testing.T) {
	resetViper(t)
	SetDefaults()

	cfg := Get()

	if cfg.Branch.DefaultBase != "main" {
		t.Errorf("Branch.DefaultBase = %q, want %q", cfg.Branch.DefaultBase, "main")
	}
	if cfg.Kanban.Enabled {
		t.Error("Kanban.Enabled = true, want false by default")
	}
	if cfg.Kanban.Port != 57429 {
		t.Errorf("Kanban.Port = %d, want 57429", cfg.Kanban.Port)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Logging.Level = %q, want INFO", cfg.Logging.Level)
	}
}

func TestEnvOverridesProjectID(t *testing.T) {
	resetViper(t)
	SetDefaults()

	t.Setenv("STAGEHAND_KANBAN_ENABLED", "true")
	t.Setenv("STAGEHAND_KANBAN_PROJECT_ID", "proj-from-env")

	BindEnv()

	if got := viper.GetString("kanban.project_id"); got != "proj-from-env" {
		t.Errorf("kanban.project_id = %q, want env override", got)
	}
	if !viper.GetBool("kanban.enabled") {
		t.Error("kanban.enabled = false, want env override to true")
	}
}

func TestStateDirOverride(t *testing.T) {
	resetViper(t)
	SetDefaults()

	dir := t.TempDir()
	viper.Set("paths.state_dir", dir)

	if got := StateDir(); got != dir {
		t.Errorf("StateDir() = %q, want %q", got, dir)
	}
}
