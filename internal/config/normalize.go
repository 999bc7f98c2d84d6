package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeBuild()
	if err := c.normalizeWatchFolders(); err != nil {
		return err
	}
	if err := c.normalizeTalks(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.temp_dir", &c.Paths.TempDir, defaultTempDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.resource_dir", &c.Paths.ResourceDir, defaultResourceDir},
		{"paths.source_dir", &c.Paths.SourceDir, defaultSourceDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
	c.Tools.Convert = strings.TrimSpace(c.Tools.Convert)
	if c.Tools.Convert == "" {
		c.Tools.Convert = defaultConvertBinary
	}
}

func (c *Config) normalizeBuild() {
	if c.Build.Framerate == 0 {
		c.Build.Framerate = defaultFramerate
	}
	c.Build.AudioFilter = strings.TrimSpace(c.Build.AudioFilter)
	if c.Build.AudioFilter == "" {
		c.Build.AudioFilter = defaultAudioFilter
	}
	c.Build.AACEncoder = strings.TrimSpace(c.Build.AACEncoder)
	if c.Build.AACEncoder == "" {
		c.Build.AACEncoder = defaultAACEncoder
	}
	c.Build.Font = strings.TrimSpace(c.Build.Font)
	if c.Build.Font == "" {
		c.Build.Font = defaultFont
	}
	if c.Build.TalkColour == "" {
		c.Build.TalkColour = defaultTalkColour
	}
	if c.Build.PresenterColour == "" {
		c.Build.PresenterColour = defaultPresenterColour
	}
	if c.Build.BackgroundColour == "" {
		c.Build.BackgroundColour = defaultBackgroundColour
	}
	if strings.TrimSpace(c.Build.LicenceText) == "" {
		c.Build.LicenceText = defaultLicenceText
	}
}

func (c *Config) normalizeWatchFolders() error {
	for i := range c.WatchFolders {
		folder := &c.WatchFolders[i]
		folder.Name = strings.TrimSpace(folder.Name)
		var err error
		if folder.Path, err = expandPath(strings.TrimSpace(folder.Path)); err != nil {
			return fmt.Errorf("watch_folders[%d].path: %w", i, err)
		}
		if strings.TrimSpace(folder.OutputDir) == "" {
			folder.OutputDir = c.Paths.SourceDir
		}
		if folder.OutputDir, err = expandPath(strings.TrimSpace(folder.OutputDir)); err != nil {
			return fmt.Errorf("watch_folders[%d].output_dir: %w", i, err)
		}
		if folder.Name == "" && folder.Path != "" {
			folder.Name = filepath.Base(folder.Path)
		}
	}
	return nil
}

func (c *Config) normalizeTalks() error {
	c.Talks.CatalogPath = strings.TrimSpace(c.Talks.CatalogPath)
	if c.Talks.CatalogPath == "" {
		return nil
	}
	var err error
	if c.Talks.CatalogPath, err = expandPath(c.Talks.CatalogPath); err != nil {
		return fmt.Errorf("talks.catalog_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("HACKYPLAYER_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.PurgeSchedule = strings.TrimSpace(c.Workflow.PurgeSchedule)
	if c.Workflow.PurgeSchedule == "" {
		c.Workflow.PurgeSchedule = defaultPurgeSchedule
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
