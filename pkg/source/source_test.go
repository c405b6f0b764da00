package source

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/runningman84/pve-diag/pkg/config"
)

const minimalSnapshot = `{"date":"2025-03-15T12:00:00Z","cluster":{"resources":[{"id":"node/pve1","type":"node","node":"pve1","status":"online"}]},"nodes":[{"node":"pve1"}]}`

func TestNewLoader(t *testing.T) {
	cfg := config.NewConfig()
	loader := NewLoader(cfg)

	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.config != cfg {
		t.Error("Loader config not properly set")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(minimalSnapshot), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig()
	cfg.SnapshotFile = path

	snapshot, err := NewLoader(cfg).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snapshot.Resources) != 1 || len(snapshot.Nodes) != 1 {
		t.Errorf("Load() resources/nodes = %d/%d, want 1/1", len(snapshot.Resources), len(snapshot.Nodes))
	}
}

func TestLoadFromStdin(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SnapshotFile = "-"

	loader := NewLoader(cfg)
	loader.stdin = strings.NewReader(minimalSnapshot)

	snapshot, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snapshot.Nodes[0].Node != "pve1" {
		t.Errorf("node = %s, want pve1", snapshot.Nodes[0].Node)
	}
}

func TestLoadFromCommand(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat command not available")
	}

	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(minimalSnapshot), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig()
	cfg.SnapshotFile = "does-not-exist.json"
	cfg.SnapshotCmd = []string{"cat", path}

	snapshot, err := NewLoader(cfg).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snapshot.Resources) != 1 {
		t.Errorf("len(Resources) = %d, want 1", len(snapshot.Resources))
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		cmd    []string
		noSrc  bool
		needed string
	}{
		{name: "no source", noSrc: true},
		{name: "missing file", file: filepath.Join(os.TempDir(), "pve-diag-missing", "data.json")},
		{name: "failing command", cmd: []string{"false"}, needed: "false"},
		{name: "unknown command", cmd: []string{"pve-diag-no-such-collector"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.needed != "" {
				if _, err := exec.LookPath(tt.needed); err != nil {
					t.Skipf("%s command not available", tt.needed)
				}
			}

			cfg := config.NewConfig()
			cfg.LogLevel = "debug"
			cfg.SnapshotFile = tt.file
			cfg.SnapshotCmd = tt.cmd

			_, err := NewLoader(cfg).Load(context.Background())
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if errors.Is(err, ErrNoSource) != tt.noSrc {
				t.Errorf("errors.Is(err, ErrNoSource) = %v, want %v", errors.Is(err, ErrNoSource), tt.noSrc)
			}
		})
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SnapshotFile = "-"

	loader := NewLoader(cfg)
	loader.stdin = strings.NewReader("not json")

	if _, err := loader.Load(context.Background()); err == nil {
		t.Error("Load() error = nil, want error")
	}
}
