// Package ingest re-encodes camera footage into the house mezzanine format.
//
// An ingest probes the input for its duration, transcodes it with
// deinterlacing and a stereo downmix of the front channels, and on success
// moves the original into a Processed directory next to it. A failed ingest
// leaves the source where it was.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hackyplayer/internal/config"
	"hackyplayer/internal/fileutil"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/media/ffprobe"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/runner"
	"hackyplayer/internal/services"
)

// Phase names reported while an ingest runs.
const (
	PhaseProbing   = "Probing"
	PhaseIngesting = "Ingesting"
)

// ProcessedDirName is the sibling directory sources are moved into after a successful ingest.
const ProcessedDirName = "Processed"

const logTimeLayout = "20060102-150405"

// Task is the handle an ingest reports through.
type Task interface {
	ID() string
	Logger() *slog.Logger
	SetPhase(phase string)
	Progress(current, total float64)
}

// Executor runs external tools.
type Executor interface {
	ffprobe.Executor
	Run(ctx context.Context, c runner.Command, onProgress func(runner.ProgressEvent)) error
}

// Pipeline executes ingest jobs.
type Pipeline struct {
	cfg  *config.Config
	exec Executor
	now  func() time.Time
}

// New constructs an ingest pipeline.
func New(cfg *config.Config, exec Executor) *Pipeline {
	return &Pipeline{cfg: cfg, exec: exec, now: time.Now}
}

// OutputPath returns `<outputDir>/<input stem>.mp4`.
func OutputPath(input, outputDir string) string {
	return filepath.Join(outputDir, inputStem(input)+".mp4")
}

// ReserveOutput claims OutputPath for jobID, falling back to
// `<stem>-<id8>.mp4` when another ingest already owns the plain name.
func ReserveOutput(jobID, input, outputDir string) (string, error) {
	short := strings.ReplaceAll(jobID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fileutil.ReserveFile(
		OutputPath(input, outputDir),
		filepath.Join(outputDir, inputStem(input)+"-"+short+".mp4"),
	)
}

func inputStem(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TranscodeArgs returns the ffmpeg argument vector for one ingest.
func TranscodeArgs(binary, aacEncoder, input, output string, framerate int) []string {
	fps := strconv.Itoa(framerate)
	return []string{
		binary,
		"-i", input,
		"-vf", "bwdif",
		"-filter_complex", "[0:a]channelsplit=channels=FL+FR,join=inputs=2:channel_layout=stereo[a]",
		"-map", "0:v", "-map", "[a]",
		"-c:v", "h264", "-crf", "12", "-g", strconv.Itoa(int(math.Floor(float64(framerate)/2))), "-flags", "+cgop", "-s", "1920x1080",
		"-c:a", aacEncoder, "-ac", "2", "-ar", "48000", "-b:a", "128k",
		"-r", fps, "-pix_fmt", "yuv420p", "-movflags", "+faststart", output, "-y",
	}
}

// Run ingests args.Input and returns the output path.
func (p *Pipeline) Run(ctx context.Context, task Task, args queue.IngestArgs) (_ string, err error) {
	if err := args.Validate(); err != nil {
		return "", services.Wrap(services.ErrValidation, "ingest", "validate", "invalid ingest arguments", err)
	}
	info, err := os.Stat(args.Input)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "ingest", "stat input", args.Input, err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrValidation, "ingest", "stat input", args.Input+" is not a regular file", nil)
	}

	framerate := args.Framerate
	if framerate <= 0 {
		framerate = p.cfg.Build.Framerate
	}
	logDir := filepath.Join(firstNonEmpty(args.LogDir, p.cfg.Paths.LogDir), task.ID())
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}
	if err := os.MkdirAll(args.OutputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "ingest", "create output dir", args.OutputDir, err)
	}
	inputName := filepath.Base(args.Input)
	toolLog := filepath.Join(logDir, inputName+p.now().Format(logTimeLayout)+".log")
	output, err := ReserveOutput(task.ID(), args.Input, args.OutputDir)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "ingest", "reserve output", args.OutputDir, err)
	}
	defer func() {
		if err != nil {
			fileutil.ReleaseEmpty(output)
		}
	}()

	logger := task.Logger().With(logging.String(logging.FieldComponent, "ingest"))
	logger.Info("ingest started",
		logging.String("input", args.Input),
		logging.String("output", output),
		logging.String("log_path", toolLog),
	)

	task.SetPhase(PhaseProbing)
	total, err := ffprobe.Duration(ctx, p.exec, p.cfg.Tools.FFprobe, args.Input, toolLog)
	if err != nil {
		if errors.Is(err, services.ErrCanceled) {
			return "", err
		}
		return "", services.Wrap(services.ErrExternalTool, "ingest", "probe", inputName, err)
	}

	task.SetPhase(PhaseIngesting)
	task.Progress(0, total)
	cmdArgs := TranscodeArgs(p.cfg.Tools.FFmpeg, p.cfg.Build.AACEncoder, args.Input, output, framerate)
	logger.Debug("ingest command", logging.String("command", runner.FormatCommand(cmdArgs)))
	if err := p.exec.Run(ctx, runner.Command{Args: cmdArgs, LogPath: toolLog, Logger: logger}, func(ev runner.ProgressEvent) {
		task.Progress(math.Min(ev.Elapsed, total), total)
	}); err != nil {
		return "", err
	}

	moved, err := fileutil.MoveIntoDir(args.Input, filepath.Join(filepath.Dir(args.Input), ProcessedDirName))
	if err != nil {
		return "", fmt.Errorf("move source to %s: %w", ProcessedDirName, err)
	}
	logger.Info("ingest completed",
		logging.String("output", output),
		logging.String("processed", moved),
		logging.Float64("duration_seconds", total),
	)
	return output, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
