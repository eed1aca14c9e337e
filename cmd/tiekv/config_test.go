package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	clearenv := func(t *testing.T) {
		t.Helper()
		t.Setenv("TIEKV_CONFIG", "")
		t.Setenv("TIEKV_PROMPT", "")
		t.Setenv("TIEKV_LOG_DIR", "")
		t.Setenv("HOME", t.TempDir())
	}

	t.Run("defaults apply without a file", func(t *testing.T) {
		clearenv(t)

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Prompt != "tiekv> " {
			t.Errorf("Expected the default prompt, got %q", cfg.Prompt)
		}
		if len(cfg.Ties) != 0 {
			t.Errorf("Expected no ties, got %d", len(cfg.Ties))
		}
	})

	t.Run("file settings override defaults", func(t *testing.T) {
		clearenv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "prompt: \"kv> \"\nlog_dir: /tmp/kv-logs\nties:\n  - name: prefs\n    path: /var/db/prefs.db\n    read_only: true\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Prompt != "kv> " {
			t.Errorf("Expected the file prompt, got %q", cfg.Prompt)
		}
		if cfg.LogDir != "/tmp/kv-logs" {
			t.Errorf("Expected the file log dir, got %q", cfg.LogDir)
		}
		if len(cfg.Ties) != 1 {
			t.Fatalf("Expected 1 tie, got %d", len(cfg.Ties))
		}
		tie := cfg.Ties[0]
		if tie.Name != "prefs" || tie.Path != "/var/db/prefs.db" || !tie.ReadOnly {
			t.Errorf("Expected the tie spec parsed, got %+v", tie)
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		clearenv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("prompt: \"file> \"\n"), 0o600); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		t.Setenv("TIEKV_PROMPT", "env> ")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Prompt != "env> " {
			t.Errorf("Expected the environment prompt, got %q", cfg.Prompt)
		}
	})

	t.Run("TIEKV_CONFIG names the file", func(t *testing.T) {
		clearenv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("prompt: \"env-file> \"\n"), 0o600); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		t.Setenv("TIEKV_CONFIG", path)

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Prompt != "env-file> " {
			t.Errorf("Expected the named file's prompt, got %q", cfg.Prompt)
		}
	})

	t.Run("explicit missing file fails", func(t *testing.T) {
		clearenv(t)

		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("Expected an error for an explicitly named missing file")
		}
	})

	t.Run("missing default file is fine", func(t *testing.T) {
		clearenv(t)

		if _, err := LoadConfig(""); err != nil {
			t.Errorf("Expected the missing default file ignored, got %v", err)
		}
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		clearenv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("prompt: [unclosed\n"), 0o600); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected a parse error")
		}
	})
}
