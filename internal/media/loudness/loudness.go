// Package loudness builds the ffmpeg loudnorm filters used for two-pass
// EBU R128 normalization and parses the measurement block ffmpeg prints after
// an analysis pass.
package loudness

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrAnalysis is returned when the loudnorm diagnostic block is absent or unparseable.
var ErrAnalysis = errors.New("loudness analysis failed")

// Marker prefixes the log line ffmpeg emits immediately before the JSON block.
const Marker = "[Parsed_loudnorm_"

const (
	truePeak       = -1.0
	loudnessRange  = 7.0
	analysisFormat = "loudnorm=I=%.1f:TP=%.1f:LRA=%.1f:print_format=json"
)

// Measurement holds the first-pass statistics loudnorm reports.
type Measurement struct {
	InputI       float64
	InputTP      float64
	InputLRA     float64
	InputThresh  float64
	TargetOffset float64
}

type rawMeasurement struct {
	InputI       string `json:"input_i"`
	InputTP      string `json:"input_tp"`
	InputLRA     string `json:"input_lra"`
	InputThresh  string `json:"input_thresh"`
	TargetOffset string `json:"target_offset"`
}

// AnalysisFilter returns the measurement-pass filter for the integrated loudness target.
func AnalysisFilter(target float64) string {
	return fmt.Sprintf(analysisFormat, target, truePeak, loudnessRange)
}

// NormalizeFilter returns the second-pass loudnorm filter seeded with m.
func (m Measurement) NormalizeFilter(target float64) string {
	return fmt.Sprintf(
		"loudnorm=I=%.1f:TP=%.1f:LRA=%.1f:measured_I=%.2f:measured_TP=%.2f:measured_LRA=%.2f:measured_thresh=%.2f:offset=%.2f:linear=true:print_format=summary",
		target, truePeak, loudnessRange,
		m.InputI, m.InputTP, m.InputLRA, m.InputThresh, m.TargetOffset,
	)
}

// Extract finds the last loudnorm diagnostic block in output and parses it.
func Extract(output string) (Measurement, error) {
	idx := strings.LastIndex(output, Marker)
	if idx < 0 {
		return Measurement{}, fmt.Errorf("%w: marker %q not found", ErrAnalysis, Marker)
	}
	rest := output[idx:]
	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return Measurement{}, fmt.Errorf("%w: no JSON block after marker", ErrAnalysis)
	}
	end := strings.IndexByte(rest[start:], '}')
	if end < 0 {
		return Measurement{}, fmt.Errorf("%w: unterminated JSON block", ErrAnalysis)
	}

	var raw rawMeasurement
	if err := json.Unmarshal([]byte(rest[start:start+end+1]), &raw); err != nil {
		return Measurement{}, fmt.Errorf("%w: %w", ErrAnalysis, err)
	}

	var (
		m    Measurement
		errs []error
	)
	parse := func(name, value string, dst *float64) {
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s=%q", name, value))
			return
		}
		*dst = v
	}
	parse("input_i", raw.InputI, &m.InputI)
	parse("input_tp", raw.InputTP, &m.InputTP)
	parse("input_lra", raw.InputLRA, &m.InputLRA)
	parse("input_thresh", raw.InputThresh, &m.InputThresh)
	parse("target_offset", raw.TargetOffset, &m.TargetOffset)
	if len(errs) > 0 {
		return Measurement{}, fmt.Errorf("%w: invalid values: %w", ErrAnalysis, errors.Join(errs...))
	}
	return m, nil
}
