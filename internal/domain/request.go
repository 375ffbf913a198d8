package domain

import (
	"fmt"
	"maps"
	"strings"

	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
)

// Quality is the requested output fidelity, forwarded opaquely to the service.
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
	QualityUltra    Quality = "ultra"
)

// ParseQuality maps user input to a Quality. Empty input yields standard.
func ParseQuality(v string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(QualityStandard):
		return QualityStandard, nil
	case string(QualityHigh), "hd":
		return QualityHigh, nil
	case string(QualityUltra):
		return QualityUltra, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidQuality, v)
	}
}

// TransformRequest is the validated input of one transform. A nil Selection
// means the whole image; a zero-area shape is still a selection.
type TransformRequest struct {
	ImageRef        string
	SecondImageRef  string
	Prompt          string
	ToolID          string
	Selection       geometry.Shape
	Quality         Quality
	IsVIP           bool
	VIPSessionToken *string
	Settings        Settings
	// ImageWidth and ImageHeight are the upright pixel size of ImageRef, with any
	// EXIF orientation applied. Selections are expressed in this space.
	ImageWidth  int
	ImageHeight int
	// Scale is canvas pixels per native pixel for Selection.
	Scale float64
}

// Clone deep-copies the request.
func (r TransformRequest) Clone() TransformRequest {
	if r.Selection != nil {
		r.Selection = r.Selection.Clone()
	}
	if r.VIPSessionToken != nil {
		token := *r.VIPSessionToken
		r.VIPSessionToken = &token
	}
	r.Settings = maps.Clone(r.Settings)
	return r
}

// HasSelection reports whether the request targets a region.
func (r TransformRequest) HasSelection() bool {
	return r.Selection != nil
}

// NativeSelection returns the selection mapped to native image pixels.
func (r TransformRequest) NativeSelection() geometry.Shape {
	if r.Selection == nil || r.Scale == 0 || r.Scale == 1 {
		return r.Selection
	}
	return r.Selection.Scaled(1 / r.Scale)
}
