package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadConfig_InvalidSettingsFallBack(t *testing.T) {
	t.Setenv("SETTINGS_FILE", "")
	t.Setenv("SEMANTIC_CONFIDENCE_THRESHOLD", "500")

	cfg, err := LoadConfig(zerolog.Nop())
	if err != nil {
		t.Fatalf("validation problems should not be fatal: %v", err)
	}
	if cfg.Settings.SemanticConfidenceThreshold != 60 {
		t.Errorf("threshold = %d, want default 60", cfg.Settings.SemanticConfidenceThreshold)
	}
}

func TestLoadConfig_UnreadableSettingsFile(t *testing.T) {
	t.Setenv("SETTINGS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := LoadConfig(zerolog.Nop()); err == nil {
		t.Fatal("missing settings file should be fatal")
	}
}

func TestLoadConfig_SettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("semantic_enabled: false\nkeyword_title_weight: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SETTINGS_FILE", path)
	t.Setenv("SEMANTIC_CONFIDENCE_THRESHOLD", "")

	cfg, err := LoadConfig(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Settings.SemanticEnabled || cfg.Settings.KeywordTitleWeight != 3 {
		t.Errorf("settings = %+v", cfg.Settings)
	}
}
