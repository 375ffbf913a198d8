package filters

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
)

func builtin() map[string]Filter {
	return map[string]Filter{
		"style-transfer":     styleTransfer,
		"remove-replace":     removeReplace,
		"background-removal": backgroundRemoval,
		"background-blur":    backgroundBlur,
		"face-swap":          faceSwap,
		"upscale":            upscale,
		"enhance":            enhance,
		"vip-magic":          vipMagic,
	}
}

var promptStyles = []string{"grayscale", "sepia", "invert", "vivid"}

// resolveStyle lets a style named in the prompt win over the setting.
func resolveStyle(prompt string, settings domain.Settings) string {
	lower := strings.ToLower(prompt)
	for _, s := range promptStyles {
		if strings.Contains(lower, s) {
			return s
		}
	}
	switch {
	case strings.Contains(lower, "black and white"), strings.Contains(lower, "noir"):
		return "grayscale"
	case strings.Contains(lower, "vintage"):
		return "sepia"
	}
	return choiceSetting(settings, "style", "sepia")
}

func styleTransfer(_ context.Context, job Job, mask *image.Alpha) (image.Image, error) {
	var styled image.Image
	switch resolveStyle(job.Prompt, job.Settings) {
	case "grayscale":
		styled = effect.Grayscale(job.Source)
	case "invert":
		styled = effect.Invert(job.Source)
	case "vivid":
		styled = adjust.Saturation(job.Source, 0.6)
	default:
		styled = effect.Sepia(job.Source)
	}
	strength := float64(intSetting(job.Settings, "strength", 80)) / 100
	if strength < 1 {
		styled = blend.Opacity(job.Source, styled, strength)
	}
	return Composite(job.Source, styled, mask), nil
}

func removeReplace(_ context.Context, job Job, mask *image.Alpha) (image.Image, error) {
	if mask == nil {
		return nil, errors.New("selection required")
	}
	b := job.Source.Bounds()
	fill := blur.Gaussian(job.Source, min(float64(max(b.Dx(), b.Dy()))/12+4, 24))
	feathered := Feather(mask, float64(intSetting(job.Settings, "feather", 8)))
	return Composite(job.Source, fill, feathered), nil
}

func backgroundRemoval(_ context.Context, job Job, mask *image.Alpha) (image.Image, error) {
	if mask == nil {
		return nil, errors.New("selection required")
	}
	dst := image.NewNRGBA(job.Source.Bounds())
	draw.DrawMask(dst, dst.Bounds(), job.Source, job.Source.Bounds().Min, mask, mask.Bounds().Min, draw.Src)
	return dst, nil
}

func backgroundBlur(_ context.Context, job Job, mask *image.Alpha) (image.Image, error) {
	blurred := imaging.Blur(job.Source, float64(intSetting(job.Settings, "radius", 12)))
	if mask == nil {
		return blurred, nil
	}
	return Composite(blurred, job.Source, mask), nil
}

func faceSwap(_ context.Context, job Job, mask *image.Alpha) (image.Image, error) {
	if mask == nil || job.Selection == nil {
		return nil, errors.New("selection required")
	}
	if job.Second == nil {
		return nil, errors.New("second image required")
	}
	bounds, err := geometry.ComputeBounds(job.Selection)
	if err != nil {
		return nil, err
	}
	w, h := int(bounds.Width+0.5), int(bounds.Height+0.5)
	if w <= 0 || h <= 0 {
		return job.Source, nil
	}
	patch := imaging.Fill(job.Second, w, h, imaging.Center, imaging.Lanczos)
	layer := image.NewNRGBA(job.Source.Bounds())
	draw.Draw(layer, patch.Bounds().Add(image.Pt(int(bounds.X+0.5), int(bounds.Y+0.5))), patch, image.Point{}, draw.Src)
	if boolSetting(job.Settings, "blend", true) {
		mask = Feather(mask, 3)
	}
	return Composite(job.Source, layer, mask), nil
}

func upscale(_ context.Context, job Job, _ *image.Alpha) (image.Image, error) {
	factor, err := strconv.Atoi(choiceSetting(job.Settings, "factor", "2"))
	if err != nil || factor < 1 {
		factor = 2
	}
	b := job.Source.Bounds()
	filter := imaging.CatmullRom
	if job.Quality != domain.QualityStandard && job.Quality != "" {
		filter = imaging.Lanczos
	}
	return imaging.Resize(job.Source, b.Dx()*factor, b.Dy()*factor, filter), nil
}

func enhance(_ context.Context, job Job, mask *image.Alpha) (image.Image, error) {
	out := image.Image(job.Source)
	if sharp := intSetting(job.Settings, "sharpness", 3); sharp > 0 {
		out = imaging.Sharpen(out, float64(sharp)*0.5)
	}
	out = imaging.AdjustContrast(out, 12)
	return Composite(job.Source, out, mask), nil
}

var gold = color.NRGBA{R: 212, G: 175, B: 55, A: 255}

func vipMagic(_ context.Context, job Job, mask *image.Alpha) (image.Image, error) {
	tint := imaging.New(job.Source.Bounds().Dx(), job.Source.Bounds().Dy(), gold)
	warm := blend.Opacity(adjust.Contrast(job.Source, 0.15), tint, 0.25)
	return Composite(job.Source, warm, mask), nil
}

func intSetting(s domain.Settings, key string, def int64) int64 {
	if v, ok := s[key]; ok && v.Kind == domain.SettingIntRange {
		return v.Int
	}
	return def
}

func choiceSetting(s domain.Settings, key, def string) string {
	if v, ok := s[key]; ok && v.Kind == domain.SettingEnumChoice {
		return v.Text
	}
	return def
}

func boolSetting(s domain.Settings, key string, def bool) bool {
	if v, ok := s[key]; ok && v.Kind == domain.SettingBool {
		return v.Bool
	}
	return def
}
