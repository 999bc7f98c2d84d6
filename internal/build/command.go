package build

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// MainInputs are the files the composition command reads.
type MainInputs struct {
	Video         string
	StartStamp    string
	EndStamp      string
	Background    string
	Transparent   string
	PresenterCard string
	TitleCard     string
	Logo          string
	Sponsor       string
	LicenceCard   string
}

// Encoding carries the output encoding and tagging parameters.
type Encoding struct {
	Framerate   int
	AudioFilter string
	AACEncoder  string
	Title       string
	Presenter   string
	Description string
	Year        int
}

// FilterGraph returns the filter_complex expression composing the sponsor
// slide, title cards, talk and end board for timing t.
func FilterGraph(t Timing, framerate int, audioFilter string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[0:a]afade=in:d=%.2f,afade=out:st=%.2f:d=%.2f,adelay=%.2f:all=1,",
		audioFadeIn, t.AudioFadeOffset, audioFadeOut, t.TitleEnd*1000)
	if audioFilter = strings.TrimSpace(audioFilter); audioFilter != "" {
		b.WriteString(audioFilter)
	} else {
		b.WriteString("anull")
	}
	b.WriteString("[a1];")

	labels := []string{"main", "bg", "tp", "slide-pres", "slide-title", "logo", "slide-spons", "slide-copyright"}
	for i, label := range labels {
		format := "yuva420p"
		if i < 2 {
			format = "yuv420p"
		}
		fmt.Fprintf(&b, "[%d:v]settb=AVTB,fps=%.2f,format=%s[%s];", i, float64(framerate), format, label)
	}

	b.WriteString("[logo]split[l1][l2];")
	b.WriteString("[bg]split[bg1][bg2];")
	b.WriteString("[tp][slide-pres]overlay=x=60:y=640:shortest=1[s2];")
	b.WriteString("[s2][slide-title]overlay=x=60:y=320:shortest=1[s3];")
	b.WriteString("[s3][l1]overlay=shortest=1[s4];")
	fmt.Fprintf(&b, "[slide-spons][s4]xfade=offset=%.2f:duration=%.2f[s5];", sponsorDuration, sponsorFadeOut)
	fmt.Fprintf(&b, "[bg1]trim=start=0:end=%.2f[bg3];", t.TitleEnd)
	b.WriteString("[bg3][s5]overlay[s6];")
	b.WriteString("[bg2][l2]overlay[e1];")
	fmt.Fprintf(&b, "[e1][slide-copyright]overlay=x=870:y=70:shortest=1,trim=start=0:end=%.2f[e2];", t.EndBoardTotal)
	fmt.Fprintf(&b, "[main][e2]xfade=offset=%.2f:duration=%.0f,fade=out:st=%.2f:d=%.2f[m2];",
		t.FadeOffset, endBoardCrossfade, t.EndBoardEnd, endFadeOut)
	fmt.Fprintf(&b, "[s6][m2]xfade=offset=%.2f:duration=%.2f,fade=in:d=%.2f[p1]",
		t.TitleEnd, titleFadeOut, sponsorFadeIn)
	return b.String()
}

// MetadataArgs returns the -metadata options tagging the output. The synopsis
// is only written when a description exists.
func MetadataArgs(enc Encoding) []string {
	args := []string{
		"-metadata", "title=" + enc.Title,
		"-metadata", "artist=" + enc.Presenter,
		"-metadata", "year=" + strconv.Itoa(enc.Year),
	}
	if strings.TrimSpace(enc.Description) != "" {
		args = append(args, "-metadata", "synopsis="+enc.Description)
	}
	return args
}

// MainArgs returns the composition command. The source video is referenced
// by base name; the caller runs the command from the video's directory.
func MainArgs(binary string, in MainInputs, t Timing, enc Encoding, output string) []string {
	fps := strconv.Itoa(enc.Framerate)
	looped := func(path string) []string {
		return []string{"-loop", "1", "-framerate", fps, "-i", path}
	}

	args := []string{binary, "-ss", in.StartStamp, "-to", in.EndStamp, "-i", filepath.Base(in.Video)}
	args = append(args, "-stream_loop", "-1", "-r", fps, "-i", in.Background)
	args = append(args, looped(in.Transparent)...)
	args = append(args, looped(in.PresenterCard)...)
	args = append(args, looped(in.TitleCard)...)
	args = append(args, "-width", "850", "-height", "380", "-keep_ar", "1")
	args = append(args, looped(in.Logo)...)
	args = append(args, looped(in.Sponsor)...)
	args = append(args, looped(in.LicenceCard)...)
	args = append(args, "-filter_complex", FilterGraph(t, enc.Framerate, enc.AudioFilter))
	args = append(args, "-map", "[p1]:v", "-map", "[a1]:a", "-map_metadata", "-1")
	args = append(args, MetadataArgs(enc)...)
	args = append(args,
		"-c:v", "h264", "-crf", "16", "-g", gopSize(enc.Framerate), "-flags", "+cgop",
		"-c:a", enc.AACEncoder, "-ac", "2", "-ar", "48000", "-b:a", "128k",
		"-r", fps, "-pix_fmt", "yuv420p", "-movflags", "+faststart", output, "-y",
	)
	return args
}

// LoudnessArgs returns the measurement pass over the trimmed range.
func LoudnessArgs(binary string, in MainInputs, filter string) []string {
	return []string{
		binary, "-hide_banner", "-nostats",
		"-ss", in.StartStamp, "-to", in.EndStamp, "-i", filepath.Base(in.Video),
		"-vn", "-af", filter, "-f", "null", "-",
	}
}

func gopSize(framerate int) string {
	return strconv.Itoa(int(math.Floor(float64(framerate) / 2)))
}
