package build

// Fixed timing model of every build, in seconds.
const (
	endDuration       = 10.0 // end board hold
	endFadeIn         = 2.0
	endFadeOut        = 2.0
	audioFadeIn       = 3.0
	audioFadeOut      = 3.0
	sponsorDuration   = 3.0
	sponsorFadeIn     = 0.4
	sponsorFadeOut    = 0.4
	titleDuration     = 2.0
	titleFadeOut      = 0.4
	endBoardCrossfade = 1.0
)

// Timing holds the offsets derived from a talk's in and out points.
type Timing struct {
	// Clip is the length of the trimmed talk.
	Clip float64
	// FadeOffset is where the talk cross-fades into the end board.
	FadeOffset float64
	// AudioFadeOffset is where the talk audio starts fading out.
	AudioFadeOffset float64
	// EndBoardEnd is where the final fade to black starts.
	EndBoardEnd float64
	// EndBoardTotal is the end board length including its fade.
	EndBoardTotal float64
	// TitleEnd is the length of the opening sponsor slide plus title card.
	TitleEnd float64
	// Total is the expected length of the finished video.
	Total float64
}

// NewTiming derives the build offsets for a talk trimmed from start to end seconds.
func NewTiming(start, end float64) Timing {
	clip := end - start
	fadeOffset := clip - endFadeIn/2
	titleEnd := sponsorDuration + titleDuration
	return Timing{
		Clip:            clip,
		FadeOffset:      fadeOffset,
		AudioFadeOffset: fadeOffset - audioFadeOut,
		EndBoardEnd:     fadeOffset + endDuration,
		EndBoardTotal:   endDuration + endFadeOut,
		TitleEnd:        titleEnd,
		Total:           clip + titleEnd + endFadeIn/2,
	}
}

// clamp limits elapsed to [0, total].
func clamp(elapsed, total float64) float64 {
	switch {
	case elapsed < 0:
		return 0
	case elapsed > total:
		return total
	default:
		return elapsed
	}
}
