package transform

import (
	"strings"
	"testing"
)

func TestDefaultCatalogRules(t *testing.T) {
	c := DefaultCatalog()
	checks := map[string]func(t *testing.T, id string){
		"style-transfer": func(t *testing.T, id string) {
			tool, _ := c.Tool(id)
			if !tool.RequiresPrompt || tool.RequiresSelection {
				t.Fatalf("%s rules mismatch: %#v", id, tool)
			}
		},
		"remove-replace": func(t *testing.T, id string) {
			tool, _ := c.Tool(id)
			if !tool.RequiresSelection || tool.RequiresPrompt {
				t.Fatalf("%s rules mismatch: %#v", id, tool)
			}
		},
		"face-swap": func(t *testing.T, id string) {
			tool, _ := c.Tool(id)
			if !tool.RequiresSecondImage || !tool.VIPOnly {
				t.Fatalf("%s rules mismatch: %#v", id, tool)
			}
		},
	}
	for id, check := range checks {
		if _, ok := c.Tool(id); !ok {
			t.Fatalf("tool %s missing", id)
		}
		check(t, id)
	}
	resp := c.Response()
	if len(resp.Tools) != len(c.Tools()) || len(resp.Categories) != 3 {
		t.Fatalf("response mismatch: %d tools %d categories", len(resp.Tools), len(resp.Categories))
	}
}

func TestLoadCatalogRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"duplicate tool": `
tools:
  - id: a
  - id: a
`,
		"unknown field": `
tools:
  - id: a
    colour: red
`,
		"bad range": `
tools:
  - id: a
    settings:
      - key: n
        kind: int_range
        min: 5
        max: 1
`,
		"bad default": `
tools:
  - id: a
    settings:
      - key: mode
        kind: enum_choice
        options: [x, y]
        default: z
`,
		"unknown kind": `
tools:
  - id: a
    settings:
      - key: mode
        kind: colour
`,
		"unknown category": `
categories:
  - id: c
tools:
  - id: a
    category: d
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadCatalog(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCatalogToolsAreCopies(t *testing.T) {
	c := DefaultCatalog()
	tools := c.Tools()
	tools[0].ID = "mutated"
	if _, ok := c.Tool("mutated"); ok {
		t.Fatalf("catalog mutated through Tools()")
	}
	if c.Tools()[0].ID == "mutated" {
		t.Fatalf("catalog slice shared")
	}
}
