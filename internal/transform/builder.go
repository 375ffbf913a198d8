// Package transform assembles validated transform requests from the
// current selection, the chosen tool and user inputs.
package transform

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
)

// Input is everything the user supplied for one transform.
type Input struct {
	ImageRef        string
	SecondImageRef  string
	Prompt          string
	ToolID          string
	Selection       geometry.Shape
	Scale           float64
	Quality         string
	IsVIP           bool
	VIPSessionToken *string
	Settings        map[string]any
}

// Builder validates Input against a Catalog. It holds no per-request state.
type Builder struct {
	catalog *Catalog
	limits  ImageLimits
	logger  zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLimits overrides the default image limits.
func WithLimits(l ImageLimits) Option {
	return func(b *Builder) { b.limits = l }
}

// WithLogger sets the builder logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder constructs a Builder. A nil catalog uses DefaultCatalog.
func NewBuilder(catalog *Catalog, opts ...Option) *Builder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	b := &Builder{catalog: catalog, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	b.limits = b.limits.withDefaults()
	return b
}

// Catalog returns the catalog the builder validates against.
func (b *Builder) Catalog() *Catalog { return b.catalog }

// Build validates in and returns a request that shares nothing with it.
func (b *Builder) Build(in Input) (domain.TransformRequest, error) {
	tool, ok := b.catalog.Tool(in.ToolID)
	if !ok {
		return domain.TransformRequest{}, invalid(KindUnknownTool, "toolId", "%q", in.ToolID)
	}
	prompt := strings.TrimSpace(in.Prompt)
	if tool.RequiresPrompt && prompt == "" {
		return domain.TransformRequest{}, invalid(KindMissingPrompt, "prompt", "tool %s needs a prompt", tool.ID)
	}
	if tool.RequiresSelection && in.Selection == nil {
		return domain.TransformRequest{}, invalid(KindMissingSelection, "selection", "tool %s needs a selection", tool.ID)
	}
	if tool.RequiresSecondImage && strings.TrimSpace(in.SecondImageRef) == "" {
		return domain.TransformRequest{}, invalid(KindMissingSecondImage, "secondImage", "tool %s needs a second image", tool.ID)
	}
	quality, err := domain.ParseQuality(in.Quality)
	if err != nil {
		return domain.TransformRequest{}, invalid(KindInvalidSetting, "quality", "%q", in.Quality)
	}
	hasToken := in.VIPSessionToken != nil && strings.TrimSpace(*in.VIPSessionToken) != ""
	if tool.VIPOnly && !(in.IsVIP && hasToken) {
		return domain.TransformRequest{}, invalid(KindVIPRequired, "toolId", "tool %s is VIP only", tool.ID)
	}
	if quality == domain.QualityUltra && !hasToken {
		return domain.TransformRequest{}, invalid(KindVIPRequired, "quality", "ultra quality needs a VIP session")
	}
	if strings.TrimSpace(in.ImageRef) == "" {
		return domain.TransformRequest{}, invalid(KindUnsupportedFormat, "image", "no image")
	}

	req := domain.TransformRequest{
		ImageRef:       in.ImageRef,
		SecondImageRef: in.SecondImageRef,
		Prompt:         prompt,
		ToolID:         tool.ID,
		Quality:        quality,
		IsVIP:          in.IsVIP,
		Scale:          in.Scale,
	}
	if IsDataURL(in.ImageRef) {
		info, err := b.checkRef(in.ImageRef, "image")
		if err != nil {
			return domain.TransformRequest{}, err
		}
		req.ImageWidth, req.ImageHeight = info.Width, info.Height
	}
	if IsDataURL(in.SecondImageRef) {
		if _, err := b.checkRef(in.SecondImageRef, "secondImage"); err != nil {
			return domain.TransformRequest{}, err
		}
	}
	if in.Selection != nil {
		if err := in.Selection.Validate(); err != nil {
			return domain.TransformRequest{}, invalid(KindMissingSelection, "selection", "%v", err)
		}
		req.Selection = in.Selection.Clone()
	}
	if hasToken {
		token := strings.TrimSpace(*in.VIPSessionToken)
		req.VIPSessionToken = &token
	}
	req.Settings, err = ResolveSettings(tool.Settings, in.Settings)
	if err != nil {
		return domain.TransformRequest{}, err
	}

	b.logger.Debug().
		Str("tool", tool.ID).
		Str("quality", string(quality)).
		Bool("selection", req.HasSelection()).
		Msg("transform request built")
	return req, nil
}

func (b *Builder) checkRef(ref, field string) (ImageInfo, error) {
	data, _, err := DecodeDataURL(ref)
	if err != nil {
		return ImageInfo{}, invalid(KindUnsupportedFormat, field, "%v", err)
	}
	info, err := CheckImage(data, b.limits)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Field = field
		}
		return ImageInfo{}, err
	}
	return info, nil
}
