// Package build assembles a publishable talk video from a source recording.
//
// A build runs in three phases, each reported on the task handle:
//
//   - Building text assets: ImageMagick renders the title, presenter and
//     licence cards into the job's work directory.
//   - Analysing loudness: an optional ffmpeg loudnorm measurement pass over the
//     trimmed range whose statistics seed the final normalization.
//   - Running main build: a single ffmpeg invocation that trims the talk,
//     composes the sponsor slide, title card and end board around it, fades
//     and normalizes the audio, and writes the muxed MP4.
//
// Every generated path embeds the job id or a fresh timestamp so concurrent
// builds of the same talk never share files. Logs and partial outputs are
// left in place when a phase fails.
package build
