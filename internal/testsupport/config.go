package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"hackyplayer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.TempDir = filepath.Join(base, "temp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ResourceDir = filepath.Join(base, "resources")
	cfgVal.Paths.SourceDir = filepath.Join(base, "source")
	cfgVal.WatchFolders = []config.WatchFolder{{
		Name:      "input",
		Path:      filepath.Join(base, "input"),
		OutputDir: filepath.Join(base, "source"),
	}}
	cfgVal.Talks.CatalogPath = ""
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWatchFolders replaces the configured watch folders.
func WithWatchFolders(folders ...config.WatchFolder) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.WatchFolders = folders
	}
}

// WithTools points the external tool paths at the provided executables.
func WithTools(ffmpeg, ffprobe, convert string) ConfigOption {
	return func(b *configBuilder) {
		if ffmpeg != "" {
			b.cfg.Tools.FFmpeg = ffmpeg
		}
		if ffprobe != "" {
			b.cfg.Tools.FFprobe = ffprobe
		}
		if convert != "" {
			b.cfg.Tools.Convert = convert
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default hackyplayer external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "convert"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
