package transform

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// orientedJPEG encodes a w x h JPEG and tags it with an EXIF orientation.
func orientedJPEG(t *testing.T, w, h int, orientation byte) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 6), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	app1 := []byte{
		0xFF, 0xE1, 0x00, 0x22,
		'E', 'x', 'i', 'f', 0x00, 0x00,
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, orientation, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	raw := buf.Bytes()
	out := append([]byte{}, raw[:2]...)
	out = append(out, app1...)
	return append(out, raw[2:]...)
}

func TestCheckImageReportsUprightSize(t *testing.T) {
	tests := []struct {
		orientation   byte
		width, height int
	}{
		{orientation: 1, width: 40, height: 20},
		{orientation: 3, width: 40, height: 20},
		{orientation: 6, width: 20, height: 40},
		{orientation: 8, width: 20, height: 40},
	}
	for _, tc := range tests {
		data := orientedJPEG(t, 40, 20, tc.orientation)
		info, err := CheckImage(data, ImageLimits{})
		if err != nil {
			t.Fatalf("orientation %d: CheckImage: %v", tc.orientation, err)
		}
		if info.Width != tc.width || info.Height != tc.height {
			t.Fatalf("orientation %d: CheckImage = %dx%d, want %dx%d", tc.orientation, info.Width, info.Height, tc.width, tc.height)
		}
		img, err := DecodeImage(data)
		if err != nil {
			t.Fatalf("orientation %d: DecodeImage: %v", tc.orientation, err)
		}
		if b := img.Bounds(); b.Dx() != info.Width || b.Dy() != info.Height {
			t.Fatalf("orientation %d: decoded %dx%d differs from checked %dx%d", tc.orientation, b.Dx(), b.Dy(), info.Width, info.Height)
		}
	}
}

func TestCheckImageRotatedPixelLimit(t *testing.T) {
	data := orientedJPEG(t, 40, 20, 6)
	if _, err := CheckImage(data, ImageLimits{MaxPixels: 799}); err == nil {
		t.Fatalf("expected pixel limit to apply before decoding")
	}
}
