package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	TempDir     string `toml:"temp_dir"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
	ResourceDir string `toml:"resource_dir"`
	SourceDir   string `toml:"source_dir"`
}

// Tools names the external binaries the pipelines supervise.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Convert string `toml:"convert"`
}

// Build contains the fixed parameters of the talk build pipeline.
type Build struct {
	Framerate        int     `toml:"framerate"`
	LoudnessTarget   float64 `toml:"loudness_target"`
	TwoPassLoudness  bool    `toml:"two_pass_loudness"`
	AudioFilter      string  `toml:"audio_filter"`
	AACEncoder       string  `toml:"aac_encoder"`
	Year             int     `toml:"year"`
	Font             string  `toml:"font"`
	TalkColour       string  `toml:"talk_colour"`
	PresenterColour  string  `toml:"presenter_colour"`
	BackgroundColour string  `toml:"background_colour"`
	LicenceText      string  `toml:"licence_text"`
}

// WatchFolder describes one directory monitored for new camera footage.
type WatchFolder struct {
	Name      string `toml:"name"`
	Path      string `toml:"path"`
	OutputDir string `toml:"output_dir"`
}

// Talks points at the optional talk catalogue used to resolve build requests.
type Talks struct {
	CatalogPath string `toml:"catalog_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Builds         bool   `toml:"builds"`
	Ingests        bool   `toml:"ingests"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains configuration for worker pool timing and housekeeping.
type Workflow struct {
	WorkerCount          int    `toml:"worker_count"`
	QueuePollInterval    int    `toml:"queue_poll_interval"`
	ErrorRetryInterval   int    `toml:"error_retry_interval"`
	HeartbeatInterval    int    `toml:"heartbeat_interval"`
	HeartbeatTimeout     int    `toml:"heartbeat_timeout"`
	CancelPollInterval   int    `toml:"cancel_poll_interval"`
	PurgeSchedule        string `toml:"purge_schedule"`
	ResultRetentionHours int    `toml:"result_retention_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for hackyplayer.
//
// Configuration sections by subsystem:
//   - Paths: output, temp, log, state and resource directories
//   - Tools: ffmpeg, ffprobe and ImageMagick binaries
//   - Build: frame rate, loudness and caption styling for talk builds
//   - WatchFolders: directories auto-ingested once files settle
//   - Talks: talk catalogue consulted when a build names a talk id
//   - Notifications: ntfy push notification settings
//   - Workflow: worker count, polling intervals and record retention
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Build         Build         `toml:"build"`
	WatchFolders  []WatchFolder `toml:"watch_folders"`
	Talks         Talks         `toml:"talks"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hackyplayer/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hackyplayer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// Watch folders are created on a best-effort basis; a monitor started on a
// missing folder stops on its first scan.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TempDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, folder := range c.WatchFolders {
		_ = os.MkdirAll(folder.Path, 0o755)
		if strings.TrimSpace(folder.OutputDir) != "" {
			_ = os.MkdirAll(folder.OutputDir, 0o755)
		}
	}
	return nil
}

// WatchFolder returns the configured watch folder with the given name.
func (c *Config) WatchFolder(name string) (WatchFolder, bool) {
	name = strings.TrimSpace(name)
	for _, folder := range c.WatchFolders {
		if folder.Name == name {
			return folder, true
		}
	}
	return WatchFolder{}, false
}

// QueueDBPath returns the location of the job queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "hackyplayer.sock")
}

// LockPath returns the single-daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "hackyplayer.lock")
}

// PIDPath returns the daemon PID file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "hackyplayer.pid")
}

// DaemonLogDir returns the directory holding daemon session logs.
func (c *Config) DaemonLogDir() string {
	return filepath.Join(c.Paths.LogDir, "daemon")
}

// JobLogDir returns the per-job log directory keyed by job id.
func (c *Config) JobLogDir(jobID string) string {
	return filepath.Join(c.Paths.LogDir, jobID)
}

// ResourcePath resolves a static build resource (font, background, logo).
func (c *Config) ResourcePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Paths.ResourceDir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
