package build

import (
	"errors"
)

// ErrAssetGeneration indicates ImageMagick failed to render a card.
var ErrAssetGeneration = errors.New("asset generation failed")

// Static resources expected in the resource directory.
const (
	BackgroundVideo = "BG_V3_LC_Shaded.mp4"
	TransparentPNG  = "transparent.png"
	LogoSVG         = "logo.svg"
	SponsorSlide    = "sponsor_slide_rounded.png"
)

// RequiredResources lists the static inputs every build reads.
var RequiredResources = []string{BackgroundVideo, TransparentPNG, LogoSVG, SponsorSlide}

const (
	shadowSpec      = "500x2+0+0"
	transparentFill = "#00000000"
)

// Card is one caption rendered to a transparent PNG.
type Card struct {
	Name    string
	Size    string
	Fill    string
	Gravity string
	Text    string
	Output  string
}

// Style carries the shared rendering parameters of every card.
type Style struct {
	Font       string
	Background string
}

// ConvertArgs returns the ImageMagick argument vector that renders card with a drop shadow.
func ConvertArgs(binary string, style Style, card Card) []string {
	return []string{
		binary,
		"-size", card.Size, "-background", transparentFill,
		"-fill", card.Fill, "-gravity", card.Gravity, "-font", style.Font, "caption:" + card.Text,
		"(", "+clone", "-shadow", shadowSpec, ")", "+swap",
		"-background", style.Background, "-layers", "merge", "+repage",
		card.Output,
	}
}

// Cards returns the title, presenter and licence cards for a talk.
func Cards(title, presenter, licence, talkColour, presenterColour string, paths Paths) []Card {
	return []Card{
		{Name: "title", Size: "1800x300", Fill: talkColour, Gravity: "center", Text: title, Output: paths.TitleCard},
		{Name: "presenter", Size: "1800x256", Fill: presenterColour, Gravity: "center", Text: presenter, Output: paths.PresenterCard},
		{Name: "licence", Size: "1000x256", Fill: presenterColour, Gravity: "east", Text: licence, Output: paths.LicenceCard},
	}
}
