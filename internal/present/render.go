package present

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

var divider = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Render composes the comparison image for the current mode. The original is
// scaled to the result's width so both sides line up.
func (c Comparison) Render(original, result image.Image) (image.Image, error) {
	if original == nil || result == nil {
		return nil, errors.New("present: both images are required")
	}
	rb := result.Bounds()
	switch c.Mode {
	case ModeToggle:
		if c.Showing == SideOriginal {
			return imaging.Clone(original), nil
		}
		return imaging.Clone(result), nil
	case ModeStacked:
		top := imaging.Resize(original, rb.Dx(), 0, imaging.Lanczos)
		canvas := imaging.New(rb.Dx(), top.Bounds().Dy()+rb.Dy(), color.Transparent)
		canvas = imaging.Paste(canvas, top, image.Pt(0, 0))
		return imaging.Paste(canvas, result, image.Pt(0, top.Bounds().Dy())), nil
	default:
		left := original
		if ob := original.Bounds(); ob.Dx() != rb.Dx() || ob.Dy() != rb.Dy() {
			left = imaging.Resize(original, rb.Dx(), rb.Dy(), imaging.Lanczos)
		}
		canvas := imaging.Clone(result)
		clip := c.ClipX(rb.Dx())
		if clip > 0 {
			canvas = imaging.Paste(canvas, imaging.Crop(left, image.Rect(0, 0, clip, rb.Dy()).Add(left.Bounds().Min)), image.Pt(0, 0))
		}
		if clip > 0 && clip < rb.Dx() {
			for y := 0; y < rb.Dy(); y++ {
				canvas.SetNRGBA(clip, y, divider)
			}
		}
		return canvas, nil
	}
}
