package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"hackyplayer/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if got := CheckDirectoryAccess("Output", dir); !got.Passed || got.Path != dir {
		t.Fatalf("expected writable dir to pass, got %+v", got)
	}

	missing := filepath.Join(dir, "missing")
	if got := CheckDirectoryAccess("Output", missing); got.Passed || got.Detail != "does not exist" {
		t.Fatalf("expected missing dir to fail, got %+v", got)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if got := CheckReadableDirectory("Source", file); got.Passed || got.Detail != "is not a directory" {
		t.Fatalf("expected file to fail, got %+v", got)
	}
	if got := CheckDirectoryAccess("Output", ""); got.Passed || got.Detail != "not configured" {
		t.Fatalf("expected empty path to fail, got %+v", got)
	}
}

func TestCheckDirectoriesCoversWatchFolders(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = base
	cfg.Paths.ResourceDir = base
	cfg.Paths.OutputDir = base
	cfg.Paths.TempDir = base
	cfg.Paths.LogDir = base
	cfg.Paths.StateDir = base
	cfg.WatchFolders = []config.WatchFolder{
		{Name: "input", Path: base},
		{Name: "camera", Path: filepath.Join(base, "camera"), OutputDir: base},
	}

	results := CheckDirectories(&cfg)
	if len(results) != 9 {
		t.Fatalf("expected 9 checks, got %d: %+v", len(results), results)
	}
	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
			if r.Name != "Watch folder camera" {
				t.Fatalf("unexpected failure %+v", r)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("expected one failed check, got %d", failed)
	}
}
