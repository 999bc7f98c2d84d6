// Package timecode converts HH:MM:SS:FF timecodes into seconds and trim
// timestamps at a fixed frame rate.
package timecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed indicates a timecode that is not HH:MM:SS:FF or has a
// component out of range for the frame rate.
var ErrMalformed = errors.New("malformed timecode")

// Timecode is a point in a recording expressed as hours, minutes, seconds and
// frames.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

// Split parses tc at the given frame rate.
func Split(tc string, framerate int) (Timecode, error) {
	if framerate <= 0 {
		return Timecode{}, fmt.Errorf("%w: framerate %d must be positive", ErrMalformed, framerate)
	}
	parts := strings.Split(strings.TrimSpace(tc), ":")
	if len(parts) != 4 {
		return Timecode{}, fmt.Errorf("%w: %q is not HH:MM:SS:FF", ErrMalformed, tc)
	}
	var values [4]int
	for i, part := range parts {
		if part == "" || strings.ContainsAny(part, "+-") {
			return Timecode{}, fmt.Errorf("%w: %q has a non-numeric component", ErrMalformed, tc)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Timecode{}, fmt.Errorf("%w: %q has a non-numeric component", ErrMalformed, tc)
		}
		values[i] = n
	}
	t := Timecode{Hours: values[0], Minutes: values[1], Seconds: values[2], Frames: values[3]}
	switch {
	case t.Hours >= 24:
		return Timecode{}, fmt.Errorf("%w: hours %d out of range in %q", ErrMalformed, t.Hours, tc)
	case t.Minutes >= 60:
		return Timecode{}, fmt.Errorf("%w: minutes %d out of range in %q", ErrMalformed, t.Minutes, tc)
	case t.Seconds >= 60:
		return Timecode{}, fmt.Errorf("%w: seconds %d out of range in %q", ErrMalformed, t.Seconds, tc)
	case t.Frames >= framerate:
		return Timecode{}, fmt.Errorf("%w: frame %d out of range at %d fps in %q", ErrMalformed, t.Frames, framerate, tc)
	}
	return t, nil
}

// ToSeconds parses tc and returns its offset in seconds.
func ToSeconds(tc string, framerate int) (float64, error) {
	t, err := Split(tc, framerate)
	if err != nil {
		return 0, err
	}
	return t.Offset(framerate), nil
}

// ToTimestamp parses tc and returns an HH:MM:SS.CC trim timestamp.
func ToTimestamp(tc string, framerate int) (string, error) {
	t, err := Split(tc, framerate)
	if err != nil {
		return "", err
	}
	return t.Timestamp(framerate), nil
}

// Offset returns the offset of t in seconds.
func (t Timecode) Offset(framerate int) float64 {
	whole := t.Hours*3600 + t.Minutes*60 + t.Seconds
	return float64(whole) + float64(t.Frames)/float64(framerate)
}

// Timestamp renders t as HH:MM:SS.CC, truncating the frame to centiseconds.
func (t Timecode) Timestamp(framerate int) string {
	centis := t.Frames * 100 / framerate
	return fmt.Sprintf("%02d:%02d:%02d.%02d", t.Hours, t.Minutes, t.Seconds, centis)
}

func (t Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds, t.Frames)
}
