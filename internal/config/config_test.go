package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hackyplayer/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "hackyplayer", "video", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Build.Framerate != 50 {
		t.Fatalf("unexpected framerate: %d", cfg.Build.Framerate)
	}
	if cfg.Build.TwoPassLoudness {
		t.Fatal("expected two-pass loudness disabled by default")
	}
	if len(cfg.WatchFolders) != 1 || cfg.WatchFolders[0].Name != "input" {
		t.Fatalf("unexpected default watch folders: %#v", cfg.WatchFolders)
	}
	if !filepath.IsAbs(cfg.WatchFolders[0].Path) {
		t.Fatalf("expected absolute watch path, got %q", cfg.WatchFolders[0].Path)
	}
	if cfg.SocketPath() != filepath.Join(cfg.Paths.StateDir, "hackyplayer.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.SocketPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.TempDir, cfg.Paths.LogDir, cfg.Paths.StateDir, cfg.WatchFolders[0].Path} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hackyplayer.toml")

	type folder struct {
		Name string `toml:"name"`
		Path string `toml:"path"`
	}
	type payload struct {
		Build struct {
			Framerate       int  `toml:"framerate"`
			TwoPassLoudness bool `toml:"two_pass_loudness"`
		} `toml:"build"`
		WatchFolders []folder `toml:"watch_folders"`
		Workflow     struct {
			WorkerCount       int `toml:"worker_count"`
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Build.Framerate = 25
	custom.Build.TwoPassLoudness = true
	custom.WatchFolders = []folder{{Name: "stage-a", Path: filepath.Join(tempDir, "stage-a")}}
	custom.Workflow.WorkerCount = 4
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Build.Framerate != 25 || !cfg.Build.TwoPassLoudness {
		t.Fatalf("unexpected build section: %#v", cfg.Build)
	}
	if cfg.Workflow.WorkerCount != 4 {
		t.Fatalf("expected worker count 4, got %d", cfg.Workflow.WorkerCount)
	}
	folderCfg, ok := cfg.WatchFolder("stage-a")
	if !ok {
		t.Fatalf("expected stage-a watch folder, got %#v", cfg.WatchFolders)
	}
	if folderCfg.OutputDir != cfg.Paths.SourceDir {
		t.Fatalf("expected watch output to default to source dir, got %q", folderCfg.OutputDir)
	}
}

func TestNtfyTopicFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HACKYPLAYER_NTFY_TOPIC", "https://ntfy.sh/hacky")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/hacky" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[[watch_folders]]") {
		t.Fatalf("sample config missing watch folder block: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.OutputDir, "hackyplayer") {
		t.Fatalf("expected output dir to contain hackyplayer, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Build.Framerate != 50 {
		t.Fatalf("expected sample framerate 50, got %d", cfg.Build.Framerate)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"framerate", func(c *config.Config) { c.Build.Framerate = 0 }},
		{"worker count", func(c *config.Config) { c.Workflow.WorkerCount = 0 }},
		{"heartbeat interval", func(c *config.Config) { c.Workflow.HeartbeatInterval = 0 }},
		{"heartbeat timeout", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }},
		{"purge schedule", func(c *config.Config) { c.Workflow.PurgeSchedule = "not a schedule" }},
		{"loudness target", func(c *config.Config) { c.Build.LoudnessTarget = 3 }},
		{"duplicate watch", func(c *config.Config) {
			c.WatchFolders = append(c.WatchFolders, c.WatchFolders[0])
		}},
		{"duplicate watch path", func(c *config.Config) {
			renamed := c.WatchFolders[0]
			renamed.Name = "renamed"
			renamed.Path += string(filepath.Separator)
			c.WatchFolders = append(c.WatchFolders, renamed)
		}},
		{"colour", func(c *config.Config) { c.Build.TalkColour = "yellow" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
