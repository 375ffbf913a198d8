package i18n

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/present"
)

// Prefs are the user's persisted choices.
type Prefs struct {
	Language    string         `json:"language"`
	Quality     domain.Quality `json:"quality"`
	CompareMode present.Mode   `json:"compareMode"`
}

// DefaultPrefs is used when nothing is stored.
func DefaultPrefs() Prefs {
	return Prefs{Language: "en", Quality: domain.QualityStandard, CompareMode: present.ModeSlider}
}

// Store persists Prefs.
type Store interface {
	Get(ctx context.Context) (Prefs, bool, error)
	Set(ctx context.Context, p Prefs) error
}

// MemoryStore keeps Prefs in memory.
type MemoryStore struct {
	mu    sync.Mutex
	prefs *Prefs
}

func (m *MemoryStore) Get(context.Context) (Prefs, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return Prefs{}, false, nil
	}
	return *m.prefs, true, nil
}

func (m *MemoryStore) Set(_ context.Context, p Prefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = &p
	return nil
}

// FileStore keeps Prefs in a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore stores preferences at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPrefsPath is the per-user preferences file.
func DefaultPrefsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("i18n: config dir: %w", err)
	}
	return filepath.Join(dir, "knoux-versa", "preferences.json"), nil
}

func (f *FileStore) Get(ctx context.Context) (Prefs, bool, error) {
	if err := ctx.Err(); err != nil {
		return Prefs{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Prefs{}, false, nil
	}
	if err != nil {
		return Prefs{}, false, fmt.Errorf("i18n: read preferences: %w", err)
	}
	var p Prefs
	if err := json.Unmarshal(raw, &p); err != nil {
		return Prefs{}, false, fmt.Errorf("i18n: decode preferences: %w", err)
	}
	return p, true, nil
}

func (f *FileStore) Set(ctx context.Context, p Prefs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("i18n: encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("i18n: ensure directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("i18n: write preferences: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("i18n: replace preferences: %w", err)
	}
	return nil
}

// Preferences validates changes and writes them through a Store.
type Preferences struct {
	store   Store
	mu      sync.Mutex
	current Prefs
}

// LoadPreferences reads the stored prefs, falling back to defaults for
// missing or invalid fields.
func LoadPreferences(ctx context.Context, store Store) (*Preferences, error) {
	p := &Preferences{store: store, current: DefaultPrefs()}
	stored, ok, err := store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		if stored.Language != "" {
			p.current.Language = New(stored.Language).Language()
		}
		if q, err := domain.ParseQuality(string(stored.Quality)); err == nil {
			p.current.Quality = q
		}
		if m, err := present.ParseMode(string(stored.CompareMode)); err == nil {
			p.current.CompareMode = m
		}
	}
	return p, nil
}

// Get returns the current prefs.
func (p *Preferences) Get() Prefs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Localizer returns a localizer for the preferred language.
func (p *Preferences) Localizer() *Localizer {
	return New(p.Get().Language)
}

// SetLanguage stores the closest supported language to lang.
func (p *Preferences) SetLanguage(ctx context.Context, lang string) error {
	return p.update(ctx, func(pr *Prefs) error {
		pr.Language = New(lang).Language()
		return nil
	})
}

// SetQuality stores the default quality.
func (p *Preferences) SetQuality(ctx context.Context, quality string) error {
	return p.update(ctx, func(pr *Prefs) error {
		q, err := domain.ParseQuality(quality)
		if err != nil {
			return err
		}
		pr.Quality = q
		return nil
	})
}

// SetCompareMode stores the default comparison mode.
func (p *Preferences) SetCompareMode(ctx context.Context, mode string) error {
	return p.update(ctx, func(pr *Prefs) error {
		m, err := present.ParseMode(mode)
		if err != nil {
			return err
		}
		pr.CompareMode = m
		return nil
	})
}

func (p *Preferences) update(ctx context.Context, fn func(*Prefs) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.current
	if err := fn(&next); err != nil {
		return err
	}
	if err := p.store.Set(ctx, next); err != nil {
		return err
	}
	p.current = next
	return nil
}
