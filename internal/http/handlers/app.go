package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/cache"
	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/execution"
	"github.com/Knouxai/Knoux-versa-sub002/internal/i18n"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/middleware"
	"github.com/Knouxai/Knoux-versa-sub002/internal/storage"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
	"github.com/Knouxai/Knoux-versa-sub002/internal/worker"
)

// App carries the dependencies shared by the HTTP handlers.
type App struct {
	Catalog        *transform.Catalog
	Transport      *execution.LocalTransport
	Hub            *worker.Hub
	Cache          cache.Store
	CacheTTL       time.Duration
	Storage        storage.Store
	StorageBaseURL string
	Jobs           domain.JobRepository
	Stats          domain.StatsRepository
	JWTSecret      string
	VIPKeys        []string
	VIPTokenTTL    time.Duration
	MaxBodyBytes   int64
	StreamTimeout  time.Duration
	Logger         *infra.Logger
	Now            func() time.Time
	Started        time.Time
}

// Options configures NewApp. Jobs and Storage are optional. Stats defaults
// to Jobs when the repository can aggregate.
type Options struct {
	Config    *infra.Config
	Catalog   *transform.Catalog
	Transport *execution.LocalTransport
	Cache     cache.Store
	Storage   storage.Store
	Jobs      domain.JobRepository
	Stats     domain.StatsRepository
	Logger    *infra.Logger
}

// NewApp wires the handler dependencies from the service configuration.
func NewApp(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("handlers: config is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("handlers: transport is required")
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = transform.DefaultCatalog()
	}
	store := opts.Cache
	if store == nil {
		store = cache.NewMemory(0)
	}
	stats := opts.Stats
	if stats == nil {
		stats, _ = opts.Jobs.(domain.StatsRepository)
	}
	cfg := opts.Config
	return &App{
		Catalog:        catalog,
		Transport:      opts.Transport,
		Hub:            opts.Transport.Hub(),
		Cache:          store,
		CacheTTL:       cfg.CacheTTL,
		Storage:        opts.Storage,
		StorageBaseURL: cfg.StorageBaseURL,
		Jobs:           opts.Jobs,
		Stats:          stats,
		JWTSecret:      cfg.JWTSecret,
		VIPKeys:        cfg.VIPKeys,
		VIPTokenTTL:    cfg.VIPTokenTTL,
		MaxBodyBytes:   maxBodyBytes(cfg.MaxImageBytes),
		StreamTimeout:  2 * cfg.TaskTimeout,
		Logger:         logger,
		Now:            time.Now,
		Started:        time.Now(),
	}, nil
}

// Two base64 images plus the JSON envelope.
func maxBodyBytes(maxImage int) int64 {
	if maxImage <= 0 {
		maxImage = transform.DefaultMaxBytes
	}
	return int64(maxImage)*3 + 1<<20
}

// StorageLoader resolves image references that point at this service's own
// storage, so clients can resubmit earlier results by URL.
func StorageLoader(store storage.Store, baseURL string) execution.ImageLoader {
	return func(ctx context.Context, ref string) ([]byte, error) {
		key, ok := storage.KeyFromURL(baseURL, ref)
		if !ok || store == nil {
			return nil, &transform.ValidationError{Kind: transform.KindUnsupportedFormat, Field: "image", Detail: "remote image urls are not accepted"}
		}
		return store.Read(ctx, key)
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Success: false, Code: code, Error: message})
}

// log prefers the request scoped logger installed by middleware.Logger.
func (a *App) log(r *http.Request) *infra.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return a.Logger
}

func (a *App) localizer(r *http.Request) *i18n.Localizer {
	return i18n.New(middleware.LocaleFromContext(r.Context()))
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
