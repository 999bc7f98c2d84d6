package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"hackyplayer/internal/runner"
)

// ErrNoDuration is returned when ffprobe reports no usable container duration.
var ErrNoDuration = errors.New("ffprobe reported no duration")

// Executor captures the stdout of an external tool.
type Executor interface {
	Output(ctx context.Context, c runner.Command) ([]byte, error)
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Format Format `json:"format"`
	raw    []byte
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Args returns the argument vector used to inspect path.
func Args(binary, path string) []string {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return []string{binary, "-v", "quiet", "-print_format", "json", "-show_format", path}
}

// Inspect executes ffprobe against path and decodes the JSON response. Tool
// stderr is appended to logPath when set.
func Inspect(ctx context.Context, exec Executor, binary, path, logPath string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	output, err := exec.Output(ctx, runner.Command{Args: Args(binary, path), LogPath: logPath})
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes raw ffprobe JSON.
func Parse(output []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), output...)
	return result, nil
}

// Duration inspects path and returns its container duration in seconds.
func Duration(ctx context.Context, exec Executor, binary, path, logPath string) (float64, error) {
	result, err := Inspect(ctx, exec, binary, path, logPath)
	if err != nil {
		return 0, err
	}
	seconds := result.DurationSeconds()
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, result.Format.Duration)
	}
	return seconds, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// DurationSeconds returns the container duration in seconds, 0 when absent
// and NaN when unparsable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
