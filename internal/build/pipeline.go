package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"hackyplayer/internal/config"
	"hackyplayer/internal/fileutil"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/media/loudness"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/runner"
	"hackyplayer/internal/services"
	"hackyplayer/internal/timecode"
)

// Phase names reported while a build runs.
const (
	PhaseAssets   = "Building text assets"
	PhaseLoudness = "Analysing loudness"
	PhaseMain     = "Running main build"
)

// Task is the handle a build reports through.
type Task interface {
	ID() string
	Logger() *slog.Logger
	SetPhase(phase string)
	Progress(current, total float64)
}

// Executor runs external tools.
type Executor interface {
	Run(ctx context.Context, c runner.Command, onProgress func(runner.ProgressEvent)) error
	Exec(ctx context.Context, c runner.Command) error
}

// Pipeline executes build jobs.
type Pipeline struct {
	cfg  *config.Config
	exec Executor
	now  func() time.Time
}

// New constructs a build pipeline.
func New(cfg *config.Config, exec Executor) *Pipeline {
	return &Pipeline{cfg: cfg, exec: exec, now: time.Now}
}

// Run builds the talk described by args and returns the output path.
func (p *Pipeline) Run(ctx context.Context, task Task, args queue.BuildArgs) (string, error) {
	if err := args.Validate(); err != nil {
		return "", services.Wrap(services.ErrValidation, "build", "validate", "invalid build arguments", err)
	}
	framerate := args.Framerate
	if framerate <= 0 {
		framerate = p.cfg.Build.Framerate
	}
	start, err := timecode.Split(args.StartTC, framerate)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "build", "parse start", "invalid start timecode", err)
	}
	end, err := timecode.Split(args.EndTC, framerate)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "build", "parse end", "invalid end timecode", err)
	}
	startS, endS := start.Offset(framerate), end.Offset(framerate)
	if endS <= startS {
		return "", services.Wrap(services.ErrValidation, "build", "check range",
			fmt.Sprintf("end %s must be after start %s", args.EndTC, args.StartTC), nil)
	}
	timing := NewTiming(startS, endS)

	paths, err := DerivePaths(task.ID(), args.Talk.Filename,
		firstNonEmpty(args.OutputDir, p.cfg.Paths.OutputDir),
		firstNonEmpty(args.TempDir, p.cfg.Paths.TempDir),
		firstNonEmpty(args.LogDir, p.cfg.Paths.LogDir),
		p.now(),
	)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "build", "derive paths", "unable to prepare build directories", err)
	}

	jobLog, err := logging.OpenJobLog(task.Logger(), paths.TaskLog)
	if err != nil {
		return "", fmt.Errorf("open task log: %w", err)
	}
	defer jobLog.Close()
	logger := jobLog.Logger.With(logging.String(logging.FieldComponent, "build"))

	logger.Info("build started",
		logging.String("video", args.Video),
		logging.String("title", args.Talk.Title),
		logging.String("start_tc", args.StartTC),
		logging.String("end_tc", args.EndTC),
		logging.String("output", paths.Output),
		logging.Float64("expected_seconds", timing.Total),
	)

	output, err := p.run(ctx, task, logger, args, paths, framerate, start, end, timing)
	if err != nil {
		fileutil.ReleaseEmpty(paths.Output)
		if !errors.Is(err, services.ErrCanceled) {
			logging.ErrorWithContext(logger, "build failed", "build_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "see "+paths.LogDir),
			)
		}
		return "", err
	}
	logger.Info("build completed", logging.String("output", output))
	return output, nil
}

func (p *Pipeline) run(ctx context.Context, task Task, logger *slog.Logger, args queue.BuildArgs, paths Paths, framerate int, start, end timecode.Timecode, timing Timing) (string, error) {
	build := p.cfg.Build
	videoDir := filepath.Dir(args.Video)
	inputs := MainInputs{
		Video:         args.Video,
		StartStamp:    start.Timestamp(framerate),
		EndStamp:      end.Timestamp(framerate),
		Background:    p.cfg.ResourcePath(BackgroundVideo),
		Transparent:   p.cfg.ResourcePath(TransparentPNG),
		PresenterCard: paths.PresenterCard,
		TitleCard:     paths.TitleCard,
		Logo:          p.cfg.ResourcePath(LogoSVG),
		Sponsor:       p.cfg.ResourcePath(SponsorSlide),
		LicenceCard:   paths.LicenceCard,
	}

	task.SetPhase(PhaseAssets)
	logger.Info("building text assets")
	style := Style{Font: p.cfg.ResourcePath(build.Font), Background: build.BackgroundColour}
	for _, card := range Cards(args.Talk.Title, args.Talk.Presenter, build.LicenceText, build.TalkColour, build.PresenterColour, paths) {
		if err := p.exec.Exec(ctx, runner.Command{
			Args:    ConvertArgs(p.cfg.Tools.Convert, style, card),
			LogPath: paths.AssetsLog,
			Logger:  logger,
		}); err != nil {
			if errors.Is(err, services.ErrCanceled) {
				return "", err
			}
			return "", fmt.Errorf("%w: %s card: %w", ErrAssetGeneration, card.Name, err)
		}
	}

	audioFilter := build.AudioFilter
	if build.TwoPassLoudness {
		task.SetPhase(PhaseLoudness)
		logger.Info("analysing loudness", logging.Float64("target_lufs", build.LoudnessTarget))
		var captured bytes.Buffer
		err := p.exec.Run(ctx, runner.Command{
			Args:    LoudnessArgs(p.cfg.Tools.FFmpeg, inputs, loudness.AnalysisFilter(build.LoudnessTarget)),
			Dir:     videoDir,
			LogPath: paths.LoudnessLog,
			Capture: &captured,
			Logger:  logger,
		}, func(ev runner.ProgressEvent) {
			task.Progress(clamp(ev.Elapsed, timing.Clip), timing.Clip)
		})
		if err != nil {
			return "", err
		}
		measured, err := loudness.Extract(captured.String())
		if err != nil {
			return "", fmt.Errorf("%w (see %s)", err, paths.LoudnessLog)
		}
		logger.Info("loudness measured",
			logging.Float64("input_i", measured.InputI),
			logging.Float64("input_tp", measured.InputTP),
			logging.Float64("input_lra", measured.InputLRA),
		)
		audioFilter = measured.NormalizeFilter(build.LoudnessTarget)
	}

	task.SetPhase(PhaseMain)
	task.Progress(0, timing.Total)
	cmdArgs := MainArgs(p.cfg.Tools.FFmpeg, inputs, timing, Encoding{
		Framerate:   framerate,
		AudioFilter: audioFilter,
		AACEncoder:  build.AACEncoder,
		Title:       args.Talk.Title,
		Presenter:   args.Talk.Presenter,
		Description: args.Talk.Description,
		Year:        build.Year,
	}, paths.Output)
	logger.Info("running main build")
	logger.Debug("main build command", logging.String("command", runner.FormatCommand(cmdArgs)))
	if err := p.exec.Run(ctx, runner.Command{
		Args:    cmdArgs,
		Dir:     videoDir,
		LogPath: paths.BuildLog,
		Logger:  logger,
	}, func(ev runner.ProgressEvent) {
		task.Progress(clamp(ev.Elapsed, timing.Total), timing.Total)
	}); err != nil {
		return "", err
	}
	return paths.Output, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
