// Package presets holds ready-made field lists for common document kinds.
// The extraction pipeline does not depend on any of them.
package presets

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

//go:embed presets.yaml
var builtin []byte

type Preset struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Fields      []schema.Field `json:"fields" yaml:"fields"`
}

type file struct {
	Presets []Preset `yaml:"presets"`
}

// Catalog is an immutable set of presets keyed by name.
type Catalog struct {
	byName map[string]Preset
	order  []string
}

// Builtin parses the embedded presets.
func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

// Parse reads a presets document. Unknown keys are rejected and every field
// list must pass schema.Normalize.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	c := &Catalog{byName: make(map[string]Preset, len(f.Presets))}
	for _, p := range f.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset without a name")
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		fields, err := schema.Normalize(p.Fields)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		p.Fields = fields
		c.byName[p.Name] = p
		c.order = append(c.order, p.Name)
	}
	return c, nil
}

func (c *Catalog) Get(name string) (Preset, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// List returns presets in document order.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Names returns preset names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := append([]string(nil), c.order...)
	sort.Strings(names)
	return names
}
