// Package present renders before/after comparisons of a transform and
// exposes download, share and archive actions on the two images.
package present

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects how the two images are compared.
type Mode string

const (
	ModeSlider  Mode = "slider"
	ModeStacked Mode = "stacked"
	ModeToggle  Mode = "toggle"
)

// ParseMode maps user input to a Mode.
func ParseMode(v string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(v))); m {
	case ModeSlider, ModeStacked, ModeToggle:
		return m, nil
	case "":
		return ModeSlider, nil
	default:
		return "", fmt.Errorf("present: unknown mode %q", v)
	}
}

// Side names the image visible in toggle mode.
type Side string

const (
	SideOriginal Side = "original"
	SideResult   Side = "result"
)

// Comparison is presentation state only; changing it never touches the job.
type Comparison struct {
	Original string
	Result   string
	Mode     Mode
	Position float64
	Showing  Side
}

// NewComparison starts a slider comparison at the midpoint showing the result.
func NewComparison(original, result string) Comparison {
	return Comparison{Original: original, Result: result, Mode: ModeSlider, Position: 50, Showing: SideResult}
}

// SetPosition moves the slider, clamping to [0, 100]. NaN is ignored.
func (c *Comparison) SetPosition(p float64) {
	if math.IsNaN(p) {
		return
	}
	c.Position = min(max(p, 0), 100)
}

// ClipX is the column, in a width-pixel render, left of which the original shows.
func (c Comparison) ClipX(width int) int {
	if width <= 0 {
		return 0
	}
	return int(math.Round(float64(width) * c.Position / 100))
}

// Toggle flips the visible side. It is a no-op outside toggle mode.
func (c *Comparison) Toggle() {
	if c.Mode != ModeToggle {
		return
	}
	if c.Showing == SideResult {
		c.Showing = SideOriginal
	} else {
		c.Showing = SideResult
	}
}
