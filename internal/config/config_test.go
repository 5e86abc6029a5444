package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"broadoak/internal/model"
)

func TestDefaultConfig_Valid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Store.BatchLimit != 500 {
		t.Fatalf("batch limit=%d, want 500", cfg.Store.BatchLimit)
	}
	got := cfg.Protected()
	if len(got) != 4 || got[2] != model.StatusCompleted {
		t.Fatalf("unexpected protected statuses: %v", got)
	}
}

func TestLoadConfigWithInfo_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, info, err := LoadConfigWithInfo(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if info.PortSpecified {
		t.Fatalf("port should not be marked as specified")
	}
	if cfg.Import.Sentinel != "JOB MANAGER" {
		t.Fatalf("sentinel=%q", cfg.Import.Sentinel)
	}
}

func TestLoadConfigWithInfo_TomlOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := []byte(`
[server]
port = 8088

[store]
backend = "memory"
batch_limit = 50

[import]
address_layout = "label"
protected_statuses = ["completed", " On-Site "]
timezone = "UTC"
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, info, err := LoadConfigWithInfo(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !info.PortSpecified || cfg.Server.Port != 8088 {
		t.Fatalf("port=%d specified=%v", cfg.Server.Port, info.PortSpecified)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Store.BatchLimit != 50 {
		t.Fatalf("store=%+v", cfg.Store)
	}
	if cfg.Import.AddressLayout != LayoutLabel {
		t.Fatalf("layout=%q", cfg.Import.AddressLayout)
	}
	// 未配置的字段保留默认值
	if cfg.Import.Sentinel != "JOB MANAGER" {
		t.Fatalf("sentinel=%q", cfg.Import.Sentinel)
	}
	got := cfg.Protected()
	if len(got) != 2 || got[1] != model.StatusOnSite {
		t.Fatalf("protected=%v", got)
	}
}

func TestLoadConfigWithInfo_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("BROADOAK_STORE_BACKEND", "firestore")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "broad-oak-test")

	cfg, _, err := LoadConfigWithInfo(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendFirestore || cfg.Store.FirestoreProject != "broad-oak-test" {
		t.Fatalf("store=%+v", cfg.Store)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*AppConfig){
		"backend":   func(c *AppConfig) { c.Store.Backend = "mongo" },
		"firestore": func(c *AppConfig) { c.Store.Backend = BackendFirestore },
		"batch":     func(c *AppConfig) { c.Store.BatchLimit = 0 },
		"layout":    func(c *AppConfig) { c.Import.AddressLayout = "guess" },
		"sentinel":  func(c *AppConfig) { c.Import.Sentinel = "  " },
		"timezone":  func(c *AppConfig) { c.Import.Timezone = "Mars/Olympus" },
		"ttl":       func(c *AppConfig) { c.Import.PreviewTTL = "soon" },
		"firestore batch": func(c *AppConfig) {
			c.Store.Backend = BackendFirestore
			c.Store.FirestoreProject = "broadoak"
			c.Store.BatchLimit = 600
		},
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidate_BatchLimitPerBackend(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Store.Backend = BackendFirestore
	cfg.Store.FirestoreProject = "broadoak"
	cfg.Store.BatchLimit = FirestoreMaxBatch
	if err := cfg.Validate(); err != nil {
		t.Fatalf("limit at the firestore cap rejected: %v", err)
	}

	cfg.Store.BatchLimit = FirestoreMaxBatch + 1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "exceeds the firestore limit") {
		t.Fatalf("err=%v", err)
	}

	// 本地 SQLite 没有单批上限
	cfg.Store.Backend = BackendSQLite
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sqlite with large batch rejected: %v", err)
	}
}
