package transform

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return EncodeDataURL("image/png", buf.Bytes())
}

func strPtr(s string) *string { return &s }

func TestBuildValidatesPerTool(t *testing.T) {
	b := NewBuilder(nil)
	img := pngDataURL(t, 8, 6)
	rect := geometry.Rectangle{X: 1, Y: 1, Width: 4, Height: 3}

	cases := []struct {
		name string
		in   Input
		kind Kind
	}{
		{"style transfer empty prompt", Input{ImageRef: img, ToolID: "style-transfer", Prompt: "   "}, KindMissingPrompt},
		{"remove replace without selection", Input{ImageRef: img, ToolID: "remove-replace", Prompt: "anything"}, KindMissingSelection},
		{"face swap without second image", Input{ImageRef: img, ToolID: "face-swap", Selection: rect, IsVIP: true, VIPSessionToken: strPtr("tok")}, KindMissingSecondImage},
		{"unknown tool", Input{ImageRef: img, ToolID: "teleport"}, KindUnknownTool},
		{"vip tool without session", Input{ImageRef: img, ToolID: "vip-magic", Prompt: "gold", IsVIP: true}, KindVIPRequired},
		{"ultra without session", Input{ImageRef: img, ToolID: "enhance", Quality: "ultra"}, KindVIPRequired},
		{"bad quality", Input{ImageRef: img, ToolID: "enhance", Quality: "extreme"}, KindInvalidSetting},
		{"unknown setting", Input{ImageRef: img, ToolID: "enhance", Settings: map[string]any{"turbo": true}}, KindInvalidSetting},
		{"out of range setting", Input{ImageRef: img, ToolID: "enhance", Settings: map[string]any{"sharpness": 11.0}}, KindInvalidSetting},
		{"bad enum", Input{ImageRef: img, ToolID: "style-transfer", Prompt: "x", Settings: map[string]any{"style": "neon"}}, KindInvalidSetting},
		{"unsupported format", Input{ImageRef: EncodeDataURL("image/bmp", []byte("BM not really an image")), ToolID: "enhance"}, KindUnsupportedFormat},
		{"missing image", Input{ToolID: "enhance"}, KindUnsupportedFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Build(tc.in)
			if err == nil {
				t.Fatalf("expected %s error", tc.kind)
			}
			kind, ok := KindOf(err)
			if !ok || kind != tc.kind {
				t.Fatalf("kind mismatch: got %v (%v) want %s", kind, err, tc.kind)
			}
			if !errors.Is(err, &ValidationError{Kind: tc.kind}) {
				t.Fatalf("errors.Is should match kind %s", tc.kind)
			}
		})
	}
}

func TestBuildStyleTransferAndRemoveReplace(t *testing.T) {
	b := NewBuilder(nil)
	img := pngDataURL(t, 8, 6)

	req, err := b.Build(Input{ImageRef: img, ToolID: "style-transfer", Prompt: "  oil painting  "})
	if err != nil {
		t.Fatalf("style-transfer: %v", err)
	}
	if req.Prompt != "oil painting" {
		t.Fatalf("prompt not trimmed: %q", req.Prompt)
	}
	if req.Selection != nil {
		t.Fatalf("expected whole-image request")
	}
	if req.Quality != domain.QualityStandard {
		t.Fatalf("quality default mismatch: %s", req.Quality)
	}
	if req.ImageWidth != 8 || req.ImageHeight != 6 {
		t.Fatalf("image size mismatch: %dx%d", req.ImageWidth, req.ImageHeight)
	}
	if got := req.Settings["style"]; got != domain.ChoiceValue("sepia") {
		t.Fatalf("style default mismatch: %#v", got)
	}
	if got := req.Settings["strength"]; got != domain.IntValue(80) {
		t.Fatalf("strength default mismatch: %#v", got)
	}

	rect := geometry.Rectangle{X: 2, Y: 2, Width: 3, Height: 3}
	req, err = b.Build(Input{ImageRef: img, ToolID: "remove-replace", Selection: rect})
	if err != nil {
		t.Fatalf("remove-replace: %v", err)
	}
	if req.Selection == nil || req.Selection.Kind() != geometry.KindRectangle {
		t.Fatalf("selection not carried: %#v", req.Selection)
	}
}

func TestBuildCopiesSelection(t *testing.T) {
	b := NewBuilder(nil)
	path := geometry.Freehand{Points: []geometry.Point{{X: 1, Y: 1}, {X: 3, Y: 4}}}
	req, err := b.Build(Input{ImageRef: "ref://image", ToolID: "remove-replace", Selection: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	path.Points[0] = geometry.Point{X: 99, Y: 99}
	got := req.Selection.(geometry.Freehand)
	if got.Points[0] != (geometry.Point{X: 1, Y: 1}) {
		t.Fatalf("request shares selection with caller: %#v", got.Points[0])
	}
}

func TestBuildZeroAreaSelectionIsDistinctFromNone(t *testing.T) {
	b := NewBuilder(nil)
	req, err := b.Build(Input{ImageRef: "ref://image", ToolID: "remove-replace", Selection: geometry.Rectangle{X: 5, Y: 5}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !req.HasSelection() {
		t.Fatalf("zero-area selection must stay a selection")
	}
}

func TestBuildVIPSession(t *testing.T) {
	b := NewBuilder(nil)
	req, err := b.Build(Input{ImageRef: "ref://image", ToolID: "vip-magic", Prompt: "gold", Quality: "ultra", IsVIP: true, VIPSessionToken: strPtr(" tok ")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.VIPSessionToken == nil || *req.VIPSessionToken != "tok" {
		t.Fatalf("token mismatch: %v", req.VIPSessionToken)
	}
	if req.Quality != domain.QualityUltra {
		t.Fatalf("quality mismatch: %s", req.Quality)
	}
}

func TestBuildImageLimits(t *testing.T) {
	img := pngDataURL(t, 4, 4)

	_, err := NewBuilder(nil, WithLimits(ImageLimits{MaxPixels: 10})).Build(Input{ImageRef: img, ToolID: "enhance"})
	if kind, _ := KindOf(err); kind != KindImageTooLarge {
		t.Fatalf("expected pixel limit error, got %v", err)
	}
	_, err = NewBuilder(nil, WithLimits(ImageLimits{MaxBytes: 10})).Build(Input{ImageRef: img, ToolID: "enhance"})
	if kind, _ := KindOf(err); kind != KindImageTooLarge {
		t.Fatalf("expected byte limit error, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "image" {
		t.Fatalf("field mismatch: %#v", ve)
	}
}

func TestResolveSettingsCoercion(t *testing.T) {
	tool, ok := DefaultCatalog().Tool("upscale")
	if !ok {
		t.Fatalf("upscale missing from default catalog")
	}
	got, err := ResolveSettings(tool.Settings, map[string]any{"factor": 4.0})
	if err != nil {
		t.Fatalf("ResolveSettings: %v", err)
	}
	if got["factor"] != domain.ChoiceValue("4") {
		t.Fatalf("numeric enum not coerced: %#v", got["factor"])
	}

	tool, _ = DefaultCatalog().Tool("face-swap")
	got, err = ResolveSettings(tool.Settings, map[string]any{"blend": "false"})
	if err != nil {
		t.Fatalf("ResolveSettings: %v", err)
	}
	if got["blend"] != domain.BoolValue(false) {
		t.Fatalf("bool not parsed: %#v", got["blend"])
	}

	tool, _ = DefaultCatalog().Tool("enhance")
	_, err = ResolveSettings(tool.Settings, map[string]any{"note": strings.Repeat("x", 201)})
	if kind, _ := KindOf(err); kind != KindInvalidSetting {
		t.Fatalf("expected free text limit error, got %v", err)
	}
	_, err = ResolveSettings(tool.Settings, map[string]any{"sharpness": 2.5})
	if kind, _ := KindOf(err); kind != KindInvalidSetting {
		t.Fatalf("expected fractional int error, got %v", err)
	}
}
