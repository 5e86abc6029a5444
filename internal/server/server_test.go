package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"broadoak/internal/config"
)

func TestOpenBackend_SQLite(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()

	b, err := OpenBackend(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer b.Close()

	if _, err := os.Stat(filepath.Join(cfg.Data.DataDir, DatabaseFile)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	u, err := b.Shifts.CreateUser(context.Background(), "Alice Smith")
	if err != nil || u.ID == "" {
		t.Fatalf("create user=%+v, %v", u, err)
	}
	logs, err := b.Journal.ListImportLogs(context.Background(), 10)
	if err != nil || len(logs) != 0 {
		t.Fatalf("logs=%v, %v", logs, err)
	}
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Store.Backend = config.BackendMemory
	cfg.Server.DevMode = true

	b, err := OpenBackend(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	srv, err := NewServer(cfg, b, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code=%d", rec.Code)
	}
	var status struct {
		Backend string `json:"backend"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil || status.Backend != config.BackendMemory {
		t.Fatalf("status=%+v, %v", status, err)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/import", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight code=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route code=%d", rec.Code)
	}
}

func TestServer_StatusReportsJournalHealth(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()

	b, err := OpenBackend(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	srv, err := NewServer(cfg, b, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	journal := func() string {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		var status struct {
			Journal string `json:"journal"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		return status.Journal
	}

	if got := journal(); got != "ok" {
		t.Fatalf("journal=%q, want ok", got)
	}
	b.Close()
	if got := journal(); got != "unavailable" {
		t.Fatalf("journal=%q after close, want unavailable", got)
	}
}
