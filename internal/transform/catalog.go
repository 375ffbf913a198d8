package transform

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the immutable set of tools and categories known to the builder.
type Catalog struct {
	tools      []domain.Tool
	categories []domain.Category
	byID       map[string]int
}

type catalogFile struct {
	Categories []domain.Category `yaml:"categories"`
	Tools      []domain.Tool     `yaml:"tools"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("transform: embedded catalog: %v", err))
	}
	return c
}

// LoadCatalogFile reads a YAML catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transform: open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog decodes and checks a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("transform: decode catalog: %w", err)
	}
	return NewCatalog(file.Tools, file.Categories)
}

// NewCatalog builds a catalog, rejecting duplicate ids and malformed settings.
func NewCatalog(tools []domain.Tool, categories []domain.Category) (*Catalog, error) {
	c := &Catalog{
		categories: slices.Clone(categories),
		byID:       make(map[string]int, len(tools)),
	}
	known := make(map[string]bool, len(categories))
	for _, cat := range categories {
		known[cat.ID] = true
	}
	for _, t := range tools {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("transform: tool without id")
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("transform: duplicate tool %q", t.ID)
		}
		if len(known) > 0 && !known[t.Category] {
			return nil, fmt.Errorf("transform: tool %q: unknown category %q", t.ID, t.Category)
		}
		keys := make(map[string]bool, len(t.Settings))
		for _, spec := range t.Settings {
			if keys[spec.Key] {
				return nil, fmt.Errorf("transform: tool %q: duplicate setting %q", t.ID, spec.Key)
			}
			keys[spec.Key] = true
			if err := checkSpec(spec); err != nil {
				return nil, fmt.Errorf("transform: tool %q: %w", t.ID, err)
			}
		}
		t.Settings = slices.Clone(t.Settings)
		c.byID[t.ID] = len(c.tools)
		c.tools = append(c.tools, t)
	}
	return c, nil
}

// Tool looks up a tool by id.
func (c *Catalog) Tool(id string) (domain.Tool, bool) {
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.Tool{}, false
	}
	return c.tools[i], true
}

// Tools returns the tools in catalog order.
func (c *Catalog) Tools() []domain.Tool {
	return slices.Clone(c.tools)
}

// Categories returns the categories in catalog order.
func (c *Catalog) Categories() []domain.Category {
	return slices.Clone(c.categories)
}

// Response renders the catalog in its wire form.
func (c *Catalog) Response() domain.CatalogResponse {
	return domain.CatalogResponse{Tools: c.Tools(), Categories: c.Categories()}
}
