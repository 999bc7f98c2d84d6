package config

const (
	defaultOutputDir            = "~/.local/share/hackyplayer/video/output"
	defaultTempDir              = "~/.local/share/hackyplayer/temp"
	defaultLogDir               = "~/.local/share/hackyplayer/logs"
	defaultStateDir             = "~/.local/share/hackyplayer/state"
	defaultResourceDir          = "~/.local/share/hackyplayer/resources"
	defaultSourceDir            = "~/.local/share/hackyplayer/video/source"
	defaultWatchName            = "input"
	defaultWatchDir             = "~/.local/share/hackyplayer/video/input"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultConvertBinary        = "convert"
	defaultFramerate            = 50
	defaultLoudnessTarget       = -23
	defaultAACEncoder           = "aac"
	defaultBuildYear            = 2024
	defaultFont                 = "Raleway.ttf"
	defaultTalkColour           = "#f9e200"
	defaultPresenterColour      = "#2eadd9"
	defaultBackgroundColour     = "#00000000"
	defaultAudioFilter          = "ladspa=f=master_me-ladspa:p=master_me:controls=c1=-16|c22=21|c59=-3"
	defaultLicenceText          = "This work is licensed under CC BY-SA 4.0. To view a copy of this license, visit https://creativecommons.org/licenses/by-sa/4.0/"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultWorkerCount          = 2
	defaultQueuePollInterval    = 2
	defaultErrorRetryInterval   = 10
	defaultHeartbeatInterval    = 15
	defaultHeartbeatTimeout     = 120
	defaultCancelPollInterval   = 1
	defaultPurgeSchedule        = "@every 10m"
	defaultResultRetentionHrs   = 24
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			TempDir:     defaultTempDir,
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
			ResourceDir: defaultResourceDir,
			SourceDir:   defaultSourceDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
			Convert: defaultConvertBinary,
		},
		Build: Build{
			Framerate:        defaultFramerate,
			LoudnessTarget:   defaultLoudnessTarget,
			AudioFilter:      defaultAudioFilter,
			AACEncoder:       defaultAACEncoder,
			Year:             defaultBuildYear,
			Font:             defaultFont,
			TalkColour:       defaultTalkColour,
			PresenterColour:  defaultPresenterColour,
			BackgroundColour: defaultBackgroundColour,
			LicenceText:      defaultLicenceText,
		},
		WatchFolders: []WatchFolder{
			{Name: defaultWatchName, Path: defaultWatchDir, OutputDir: defaultSourceDir},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Builds:         true,
			Ingests:        true,
			Errors:         true,
		},
		Workflow: Workflow{
			WorkerCount:          defaultWorkerCount,
			QueuePollInterval:    defaultQueuePollInterval,
			ErrorRetryInterval:   defaultErrorRetryInterval,
			HeartbeatInterval:    defaultHeartbeatInterval,
			HeartbeatTimeout:     defaultHeartbeatTimeout,
			CancelPollInterval:   defaultCancelPollInterval,
			PurgeSchedule:        defaultPurgeSchedule,
			ResultRetentionHours: defaultResultRetentionHrs,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
