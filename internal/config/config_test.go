package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Database = "/tmp/custom.db"
	cfg.Sites = []string{"mgeko", "mangadex"}
	cfg.Debug = true

	if err := SaveYAML(cfg, path); err != nil {
		t.Fatalf("SaveYAML: %v", err)
	}

	got, err := loadYAML(path)
	if err != nil {
		t.Fatalf("loadYAML: %v", err)
	}
	if got.Database != "/tmp/custom.db" || !got.Debug {
		t.Errorf("got %+v", got)
	}
	if len(got.Sites) != 2 || got.Sites[0] != "mgeko" {
		t.Errorf("Sites = %v", got.Sites)
	}
}

func TestMergeConfigFlagsWin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database = "from-file.db"
	cfg.ChapterWorkers = 4

	mergeConfig(cfg, Options{
		Database: "from-flag.db",
		Timeout:  60,
		Debug:    true,
	})

	if cfg.Database != "from-flag.db" {
		t.Errorf("Database = %q, flag should win", cfg.Database)
	}
	if cfg.ChapterWorkers != 4 {
		t.Errorf("ChapterWorkers = %d, unset flag must not clobber", cfg.ChapterWorkers)
	}
	if cfg.Timeout != 60 || !cfg.Debug {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{}
	normalizeDefaults(cfg)

	if cfg.Database != "mangacap.db" || cfg.ChapterWorkers != 2 || cfg.Timeout != 30 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HTTPTimeout() != 30*time.Second {
		t.Errorf("HTTPTimeout = %s", cfg.HTTPTimeout())
	}
}
