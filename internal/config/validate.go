package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateWatchFolders(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBuild() error {
	if c.Build.Framerate <= 0 {
		return errors.New("build.framerate must be positive")
	}
	if c.Build.LoudnessTarget > 0 || c.Build.LoudnessTarget < -70 {
		return errors.New("build.loudness_target must be between -70 and 0 LUFS")
	}
	for key, colour := range map[string]string{
		"build.talk_colour":       c.Build.TalkColour,
		"build.presenter_colour":  c.Build.PresenterColour,
		"build.background_colour": c.Build.BackgroundColour,
	} {
		if !strings.HasPrefix(colour, "#") {
			return fmt.Errorf("%s must be a #rrggbb or #rrggbbaa colour", key)
		}
	}
	return nil
}

func (c *Config) validateWatchFolders() error {
	seen := make(map[string]struct{}, len(c.WatchFolders))
	paths := make(map[string]string, len(c.WatchFolders))
	for i, folder := range c.WatchFolders {
		if folder.Path == "" {
			return fmt.Errorf("watch_folders[%d].path must be set", i)
		}
		if folder.Name == "" {
			return fmt.Errorf("watch_folders[%d].name must be set", i)
		}
		if _, dup := seen[folder.Name]; dup {
			return fmt.Errorf("watch_folders[%d].name %q is duplicated", i, folder.Name)
		}
		seen[folder.Name] = struct{}{}
		path := filepath.Clean(folder.Path)
		if owner, dup := paths[path]; dup {
			return fmt.Errorf("watch_folders[%d].path %q is already watched by %q", i, folder.Path, owner)
		}
		paths[path] = folder.Name
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.worker_count":         c.Workflow.WorkerCount,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.cancel_poll_interval": c.Workflow.CancelPollInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.ResultRetentionHours < 0 {
		return errors.New("workflow.result_retention_hours must be >= 0")
	}
	if _, err := cron.ParseStandard(c.Workflow.PurgeSchedule); err != nil {
		return fmt.Errorf("workflow.purge_schedule: %w", err)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
