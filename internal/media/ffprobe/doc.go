// Package ffprobe reads container metadata through ffprobe's JSON output.
//
// Inspect runs `ffprobe -v quiet -print_format json -show_format` through the
// external process runner and decodes the format section; DurationSeconds is
// the figure ingest jobs use as their progress denominator.
package ffprobe
