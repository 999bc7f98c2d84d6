// Package runner supervises the external media tools (ffmpeg, ffprobe,
// ImageMagick) that do the actual media work.
//
// Run hands the child a private pipe on fd 3 and appends `-progress pipe:3`
// so ffmpeg streams key=value progress lines into it. A reader goroutine turns
// out_time_us lines into ProgressEvents which the caller receives in order on
// its own goroutine; stdout and stderr go to the job's log file. The exit
// status is only inspected after the progress stream has drained, and a
// non-zero status becomes an *ExitError carrying the command and exit code.
//
// Children run in their own process group. Cancelling the context sends
// SIGTERM to the whole group and escalates to SIGKILL after the grace period,
// so no orphaned encoders outlive a revoked job.
package runner
