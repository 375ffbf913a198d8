package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
	"github.com/Knouxai/Knoux-versa-sub002/internal/selection"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VERSA_PREFS_PATH", filepath.Join(dir, "prefs.json"))
	t.Setenv("VERSA_API_URL", "http://127.0.0.1:1")
	t.Setenv("VERSA_VIP_TOKEN", "")
	return dir
}

func TestParseGesture(t *testing.T) {
	g, err := parseGesture("10,20,30,40", "", "")
	require.NoError(t, err)
	assert.Equal(t, selection.ToolRectangle, g.tool)
	assert.Equal(t, []geometry.Point{{X: 10, Y: 20}, {X: 40, Y: 60}}, g.points)

	g, err = parseGesture("", "5,5,3", "")
	require.NoError(t, err)
	assert.Equal(t, selection.ToolCircle, g.tool)
	assert.Equal(t, geometry.Point{X: 8, Y: 5}, g.points[1])

	g, err = parseGesture("", "", "1,1; 2,2;3,3;")
	require.NoError(t, err)
	assert.Equal(t, selection.ToolBrush, g.tool)
	assert.Len(t, g.points, 3)

	g, err = parseGesture("", "", "")
	require.NoError(t, err)
	assert.Nil(t, g)

	for _, bad := range [][3]string{
		{"1,2,3", "", ""},
		{"1,2,3,4", "1,2,3", ""},
		{"", "a,b,c", ""},
		{"", "", ";"},
	} {
		_, err := parseGesture(bad[0], bad[1], bad[2])
		assert.Error(t, err, "%v", bad)
	}
}

func TestGestureDrawScalesToCanvas(t *testing.T) {
	g, err := parseGesture("100,100,200,100", "", "")
	require.NoError(t, err)

	// 1600x1200 fits the 800x600 canvas at half scale.
	sel, display, err := g.draw(selection.ImageSource{Ref: "x", Width: 1600, Height: 1200}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, display.Scale, 1e-9)
	assert.InDelta(t, 50, sel.Bounds.X, 1e-9)
	assert.InDelta(t, 100, sel.Bounds.Width, 1e-9)
}

func TestSettingFlags(t *testing.T) {
	s := settingFlags{}
	require.NoError(t, s.Set("strength=80"))
	require.NoError(t, s.Set(" mode = soft"))
	assert.Equal(t, "80", s["strength"])
	assert.Equal(t, " soft", s["mode"])
	assert.Error(t, s.Set("novalue"))
	assert.Error(t, s.Set("=x"))
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	isolate(t)
	_, _, err := runCLI(t, "paint")
	var ue *UsageError
	require.ErrorAs(t, err, &ue)

	_, _, err = runCLI(t)
	require.ErrorAs(t, err, &ue)
}

func TestTransformRequiresInputAndTool(t *testing.T) {
	isolate(t)
	_, _, err := runCLI(t, "transform", "-tool", "enhance")
	var ue *UsageError
	require.ErrorAs(t, err, &ue)

	_, _, err = runCLI(t, "transform", "-in", "x.png")
	require.ErrorAs(t, err, &ue)

	_, _, err = runCLI(t, "transform", "-in", "x.png", "-tool", "enhance", "-rect", "1,1,1,1", "-brush", "1,1")
	require.ErrorAs(t, err, &ue)

	_, _, err = runCLI(t, "transform", "-in", "x.png", "-tool", "enhance", "-compare", "sideways")
	require.ErrorAs(t, err, &ue)
}

func TestToolsLocal(t *testing.T) {
	isolate(t)
	out, _, err := runCLI(t, "tools", "-local")
	require.NoError(t, err)
	assert.Contains(t, out, "background-removal")
	assert.Contains(t, out, "selection")
}

func TestPrefsPersist(t *testing.T) {
	dir := isolate(t)
	out, _, err := runCLI(t, "prefs", "-lang", "ar-EG", "-quality", "high", "-compare", "stacked")
	require.NoError(t, err)
	assert.Contains(t, out, "language\tar")
	assert.Contains(t, out, "compare\tstacked")

	_, err = os.Stat(filepath.Join(dir, "prefs.json"))
	require.NoError(t, err)

	out, _, err = runCLI(t, "prefs")
	require.NoError(t, err)
	assert.Contains(t, out, "quality\thigh")

	_, _, err = runCLI(t, "prefs", "-quality", "extreme")
	assert.Error(t, err)
}

func TestTransformLocalEndToEnd(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 40, 30)
	outDir := filepath.Join(dir, "out")
	archive := filepath.Join(dir, "pair.zip")
	mask := filepath.Join(dir, "mask.png")
	overlay := filepath.Join(dir, "overlay.png")

	stdout, _, err := runCLI(t, "transform",
		"-local",
		"-in", in,
		"-tool", "background-removal",
		"-rect", "5,5,20,15",
		"-out", outDir,
		"-compare", "stacked",
		"-archive", archive,
		"-mask", mask,
		"-overlay", overlay,
	)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(stdout, "Saved to"), stdout)

	var saved []string
	require.NoError(t, filepath.Walk(outDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			saved = append(saved, filepath.Base(path))
		}
		return err
	}))
	require.Len(t, saved, 2)

	for _, p := range []string{archive, mask, overlay} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), p)
	}

	f, err := os.Open(mask)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestTransformLocalValidationIsLocalized(t *testing.T) {
	dir := isolate(t)
	_, _, err := runCLI(t, "prefs", "-lang", "ar")
	require.NoError(t, err)

	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 20, 20)
	_, _, err = runCLI(t, "transform", "-local", "-in", in, "-tool", "background-removal", "-compare", "none")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "selection:")
	assert.Regexp(t, `\p{Arabic}`, err.Error())
}
