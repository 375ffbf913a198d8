package present

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/storage"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
	"github.com/Knouxai/Knoux-versa-sub002/pkg/zip"
)

// Loader resolves a non-inline image reference.
type Loader func(ctx context.Context, ref string) ([]byte, error)

// Actions operate on the two image references of a comparison.
type Actions struct {
	store   storage.Store
	baseURL string
	loader  Loader
	logger  *infra.Logger
	now     func() time.Time
}

// NewActions builds actions writing through store. baseURL is the public
// prefix of stored keys.
func NewActions(store storage.Store, baseURL string, loader Loader, logger *infra.Logger) *Actions {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Actions{store: store, baseURL: baseURL, loader: loader, logger: logger, now: time.Now}
}

// Resolve returns the encoded bytes behind ref.
func (a *Actions) Resolve(ctx context.Context, ref string) ([]byte, error) {
	if transform.IsDataURL(ref) {
		data, _, err := transform.DecodeDataURL(ref)
		return data, err
	}
	if key, ok := storage.KeyFromURL(a.baseURL, ref); ok && a.store != nil {
		return a.store.Read(ctx, key)
	}
	if a.loader == nil {
		return nil, fmt.Errorf("present: cannot resolve %q", ref)
	}
	return a.loader(ctx, ref)
}

// Download stores the result image and returns its storage key.
func (a *Actions) Download(ctx context.Context, c Comparison) (string, error) {
	data, err := a.Resolve(ctx, c.Result)
	if err != nil {
		return "", err
	}
	return a.write(ctx, "result", data)
}

// DownloadComparison stores the rendered comparison as PNG.
func (a *Actions) DownloadComparison(ctx context.Context, c Comparison) (string, error) {
	original, result, err := a.decodePair(ctx, c)
	if err != nil {
		return "", err
	}
	img, err := c.Render(original, result)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("present: encode comparison: %w", err)
	}
	return a.write(ctx, "comparison-"+string(c.Mode), buf.Bytes())
}

// Share returns the public URL of a stored key.
func (a *Actions) Share(key string) (string, error) {
	if strings.TrimSpace(a.baseURL) == "" {
		return "", errors.New("present: no public base url configured")
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("present: nothing to share")
	}
	return storage.PublicURL(a.baseURL, key), nil
}

// Archive zips the original and the result into w.
func (a *Actions) Archive(ctx context.Context, c Comparison, w io.Writer) error {
	original, err := a.Resolve(ctx, c.Original)
	if err != nil {
		return fmt.Errorf("present: original: %w", err)
	}
	result, err := a.Resolve(ctx, c.Result)
	if err != nil {
		return fmt.Errorf("present: result: %w", err)
	}
	now := a.now()
	return zip.Archive(w, []zip.Asset{
		{Filename: "original" + extension(original), MIME: http.DetectContentType(original), Data: original, Modified: now},
		{Filename: "result" + extension(result), MIME: http.DetectContentType(result), Data: result, Modified: now},
	})
}

func (a *Actions) decodePair(ctx context.Context, c Comparison) (image.Image, image.Image, error) {
	decode := func(ref string) (image.Image, error) {
		data, err := a.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		return transform.DecodeImage(data)
	}
	original, err := decode(c.Original)
	if err != nil {
		return nil, nil, fmt.Errorf("present: original: %w", err)
	}
	result, err := decode(c.Result)
	if err != nil {
		return nil, nil, fmt.Errorf("present: result: %w", err)
	}
	return original, result, nil
}

func (a *Actions) write(ctx context.Context, prefix string, data []byte) (string, error) {
	if a.store == nil {
		return "", errors.New("present: no store configured")
	}
	key := fmt.Sprintf("downloads/%s/%s-%s%s", a.now().UTC().Format("2006-01-02"), prefix, uuid.NewString()[:8], extension(data))
	stored, err := a.store.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	a.logger.Debug().Str("key", stored).Int("bytes", len(data)).Msg("present: stored download")
	return stored, nil
}

func extension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
