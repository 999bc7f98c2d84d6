package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hackyplayer/internal/logging"
	"hackyplayer/internal/services"
)

const (
	// progressFD is the child-side descriptor of the progress pipe; ExtraFiles[0] maps to fd 3.
	progressFD = 3

	defaultGracePeriod  = 5 * time.Second
	defaultDrainTimeout = 2 * time.Second
)

// ProgressEvent reports how far into its output the tool has encoded.
type ProgressEvent struct {
	Elapsed float64
}

// Command describes one external tool invocation. Args[0] is the binary.
type Command struct {
	Args []string
	Dir  string
	// LogPath receives the tool's stdout and stderr (appended).
	LogPath string
	// Capture, when set, also receives the tool's stdout and stderr.
	Capture io.Writer
	// Logger, when set, replaces the runner's logger for this invocation.
	Logger *slog.Logger
}

func (c Command) name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return filepath.Base(c.Args[0])
}

// ExitError reports a non-zero exit from an external tool.
type ExitError struct {
	Command  []string
	ExitCode int
	LogPath  string
	Err      error
}

func (e *ExitError) Error() string {
	name := "command"
	if len(e.Command) > 0 {
		name = filepath.Base(e.Command[0])
	}
	msg := fmt.Sprintf("%s exited with status %d", name, e.ExitCode)
	if e.LogPath != "" {
		msg += " (see " + e.LogPath + ")"
	}
	return msg
}

// Unwrap exposes the external tool marker and the underlying wait error.
func (e *ExitError) Unwrap() []error {
	return []error{services.ErrExternalTool, e.Err}
}

// Runner launches external tools. It holds no per-invocation state and is
// safe for concurrent use.
type Runner struct {
	logger       *slog.Logger
	gracePeriod  time.Duration
	drainTimeout time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithGracePeriod sets how long a cancelled process group gets between
// SIGTERM and SIGKILL.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.gracePeriod = d
		}
	}
}

// New constructs a Runner.
func New(logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:       logging.NewComponentLogger(logger, "runner"),
		gracePeriod:  defaultGracePeriod,
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes c with a progress pipe and delivers each progress event to
// onProgress on the calling goroutine. It returns once the progress stream is
// drained and the process has exited.
func (r *Runner) Run(ctx context.Context, c Command, onProgress func(ProgressEvent)) error {
	if len(c.Args) == 0 {
		return services.Wrap(services.ErrValidation, "runner", "run", "empty command", nil)
	}
	logger := r.loggerFor(ctx, c)

	args := append(append([]string(nil), c.Args...), "-progress", "pipe:"+strconv.Itoa(progressFD))
	cmd, output, err := r.prepare(ctx, c, args)
	if err != nil {
		return err
	}
	defer output.Close()

	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create progress pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{pw}

	logger.Debug("starting external tool", logging.String("command", FormatCommand(args)))
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return services.Wrap(services.ErrExternalTool, "runner", "start", c.name(), err)
	}
	// The child owns the write end now; keeping ours open would stop EOF from arriving.
	_ = pw.Close()

	events := make(chan ProgressEvent, 16)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer close(events)
		r.readProgress(logger, pr, events)
	}()

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		// Grandchildren can inherit the write end; bound how long we wait for EOF.
		timer := time.NewTimer(r.drainTimeout)
		select {
		case <-readerDone:
		case <-timer.C:
			_ = pr.Close()
		}
		timer.Stop()
		waitErr <- err
	}()

	for event := range events {
		if onProgress != nil {
			onProgress(event)
		}
	}
	err = <-waitErr
	_ = pr.Close()

	return r.exitError(ctx, logger, args, c.LogPath, err)
}

// Exec runs c to completion without a progress pipe.
func (r *Runner) Exec(ctx context.Context, c Command) error {
	if len(c.Args) == 0 {
		return services.Wrap(services.ErrValidation, "runner", "exec", "empty command", nil)
	}
	logger := r.loggerFor(ctx, c)
	cmd, output, err := r.prepare(ctx, c, c.Args)
	if err != nil {
		return err
	}
	defer output.Close()

	logger.Debug("starting external tool", logging.String("command", FormatCommand(c.Args)))
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "runner", "start", c.name(), err)
	}
	return r.exitError(ctx, logger, c.Args, c.LogPath, cmd.Wait())
}

// Output runs c and returns its stdout; stderr goes to the log.
func (r *Runner) Output(ctx context.Context, c Command) ([]byte, error) {
	if len(c.Args) == 0 {
		return nil, services.Wrap(services.ErrValidation, "runner", "output", "empty command", nil)
	}
	logger := r.loggerFor(ctx, c)
	cmd, output, err := r.prepare(ctx, c, c.Args)
	if err != nil {
		return nil, err
	}
	defer output.Close()

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	logger.Debug("starting external tool", logging.String("command", FormatCommand(c.Args)))
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "runner", "start", c.name(), err)
	}
	if err := r.exitError(ctx, logger, c.Args, c.LogPath, cmd.Wait()); err != nil {
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

func (r *Runner) loggerFor(ctx context.Context, c Command) *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.WithContext(ctx, r.logger)
}

func (r *Runner) prepare(ctx context.Context, c Command, args []string) (*exec.Cmd, io.Closer, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec
	cmd.Dir = c.Dir
	setProcessGroup(cmd, r.gracePeriod)

	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if c.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open tool log: %w", err)
		}
		writers = append(writers, file)
		closer = file
	}
	if c.Capture != nil {
		writers = append(writers, c.Capture)
	}
	switch len(writers) {
	case 0:
	case 1:
		cmd.Stdout, cmd.Stderr = writers[0], writers[0]
	default:
		w := io.MultiWriter(writers...)
		cmd.Stdout, cmd.Stderr = w, w
	}
	return cmd, closer, nil
}

func (r *Runner) readProgress(logger *slog.Logger, pipe io.Reader, events chan<- ProgressEvent) {
	last := 0.0
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || key != "out_time_us" || value == "N/A" {
			continue
		}
		micros, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			logger.Warn("invalid out_time_us from tool; line skipped",
				logging.String("line", scanner.Text()),
				logging.String(logging.FieldEventType, "progress_parse_failed"),
			)
			continue
		}
		elapsed := float64(micros) / 1e6
		if elapsed < last {
			continue
		}
		last = elapsed
		events <- ProgressEvent{Elapsed: elapsed}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Debug("progress stream ended with error", logging.Error(err))
	}
}

func (r *Runner) exitError(ctx context.Context, logger *slog.Logger, args []string, logPath string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("external tool terminated",
			logging.String("command", filepath.Base(args[0])),
			logging.String(logging.FieldEventType, "tool_terminated"),
		)
		return fmt.Errorf("%w: %s terminated: %w", services.ErrCanceled, filepath.Base(args[0]), ctxErr)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return services.Wrap(services.ErrExternalTool, "runner", "wait", filepath.Base(args[0]), err)
	}
	failure := &ExitError{
		Command:  append([]string(nil), args...),
		ExitCode: exitErr.ExitCode(),
		LogPath:  logPath,
		Err:      err,
	}
	logging.ErrorWithContext(logger, "external tool failed", "tool_failed",
		logging.String("command", FormatCommand(args)),
		logging.Int("exit_code", failure.ExitCode),
		logging.String("log_path", logPath),
		logging.String(logging.FieldErrorHint, "inspect the tool log for the failing filter or input"),
	)
	return failure
}

// FormatCommand renders args as a copy-pasteable shell command.
func FormatCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
	}
	return strings.Join(quoted, " ")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
