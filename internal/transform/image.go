package transform

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Default limits applied to uploaded images.
const (
	DefaultMaxBytes  = 10 << 20
	DefaultMaxPixels = 4096 * 4096
)

var supportedFormats = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// ImageLimits bounds the images a request may carry.
type ImageLimits struct {
	MaxBytes  int
	MaxPixels int
}

func (l ImageLimits) withDefaults() ImageLimits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = DefaultMaxPixels
	}
	return l
}

// ImageInfo describes a checked image.
type ImageInfo struct {
	Format string
	Width  int
	Height int
	Size   int
}

// MIMEType returns the media type of the decoded format.
func (i ImageInfo) MIMEType() string {
	return supportedFormats[i.Format]
}

// CheckImage sniffs the encoded image and enforces limits.
func CheckImage(data []byte, limits ImageLimits) (ImageInfo, error) {
	limits = limits.withDefaults()
	if len(data) > limits.MaxBytes {
		return ImageInfo{}, invalid(KindImageTooLarge, "image", "%d bytes exceeds %d", len(data), limits.MaxBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, invalid(KindUnsupportedFormat, "image", "%v", err)
	}
	if _, ok := supportedFormats[format]; !ok {
		return ImageInfo{}, invalid(KindUnsupportedFormat, "image", "format %q", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, invalid(KindUnsupportedFormat, "image", "empty image")
	}
	if cfg.Width*cfg.Height > limits.MaxPixels {
		return ImageInfo{}, invalid(KindImageTooLarge, "image", "%dx%d exceeds %d pixels", cfg.Width, cfg.Height, limits.MaxPixels)
	}
	width, height := cfg.Width, cfg.Height
	if format == "jpeg" {
		// Report the upright size so selections share a space with DecodeImage.
		img, err := DecodeImage(data)
		if err != nil {
			return ImageInfo{}, invalid(KindUnsupportedFormat, "image", "%v", err)
		}
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	return ImageInfo{Format: format, Width: width, Height: height, Size: len(data)}, nil
}

// DecodeImage decodes data with its EXIF orientation applied. Every
// consumer of pixels decodes through here so selection coordinates, masks
// and filters agree on one coordinate space.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("transform: decode image: %w", err)
	}
	return img, nil
}

// IsDataURL reports whether ref carries inline image bytes.
func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// DecodeDataURL extracts the payload of a base64 data URL.
func DecodeDataURL(ref string) ([]byte, string, error) {
	if !IsDataURL(ref) {
		return nil, "", fmt.Errorf("transform: not a data url")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("transform: malformed data url")
	}
	mediaType, params, _ := strings.Cut(meta, ";")
	if params != "base64" && !strings.HasSuffix(params, ";base64") {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("transform: data url payload: %w", err)
		}
		return []byte(decoded), mediaType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("transform: data url payload: %w", err)
		}
	}
	return data, mediaType, nil
}

// EncodeDataURL wraps data in a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
