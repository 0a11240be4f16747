package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownComponent is returned for a type the catalog does not know
	// when the caller did not supply a componentUrl either.
	ErrUnknownComponent = errors.New("unknown component type")

	// ErrInvalidProps is returned when props fail the component's config schema.
	ErrInvalidProps = errors.New("invalid component props")

	// ErrInvalidEntry is returned when a catalog entry cannot be registered.
	ErrInvalidEntry = errors.New("invalid catalog entry")
)

// Entry describes one component type.
type Entry struct {
	Type         string         `yaml:"type" json:"type"`
	ComponentURL string         `yaml:"componentUrl" json:"componentUrl"`
	Version      string         `yaml:"version" json:"version"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Category     string         `yaml:"category,omitempty" json:"category,omitempty"`
	Defaults     map[string]any `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Schema       map[string]any `yaml:"schema,omitempty" json:"schema,omitempty"`

	compiled *openapi3.Schema
	partial  *openapi3.Schema
}

// File is the on-disk catalog layout.
type File struct {
	Components []Entry `yaml:"components"`
}

// Catalog is a concurrency-safe set of entries keyed by type.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New returns a catalog holding only the built-in entries.
func New() *Catalog {
	c := &Catalog{entries: make(map[string]*Entry)}
	for _, e := range builtins() {
		if err := c.Register(e); err != nil {
			panic(fmt.Sprintf("catalog: built-in %q: %v", e.Type, err))
		}
	}
	return c
}

// Load reads a YAML catalog file into a new catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c := New()
	if err := c.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse registers every entry of a YAML document.
func (c *Catalog) Parse(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	for _, e := range f.Components {
		if err := c.Register(e); err != nil {
			return err
		}
	}
	return nil
}

// Register adds or replaces an entry, compiling its schema.
func (c *Catalog) Register(e Entry) error {
	if e.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEntry)
	}
	if e.ComponentURL == "" {
		return fmt.Errorf("%w: %s: missing componentUrl", ErrInvalidEntry, e.Type)
	}
	if e.Schema != nil {
		schema, err := compile(e.Schema)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidEntry, e.Type, err)
		}
		e.compiled = schema
		partial := *schema
		partial.Required = nil
		e.partial = &partial
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Type] = &e
	return nil
}

// Lookup returns the entry for typ.
func (c *Catalog) Lookup(typ string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[typ]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Types returns the known component types, sorted.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]string, 0, len(c.entries))
	for t := range c.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Entries returns every entry sorted by type.
func (c *Catalog) Entries() []Entry {
	types := c.Types()
	out := make([]Entry, 0, len(types))
	for _, t := range types {
		if e, ok := c.Lookup(t); ok {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks props against the schema of typ.
// Types without a schema accept any props.
func (c *Catalog) Validate(typ string, props map[string]any) error {
	c.mu.RLock()
	e, ok := c.entries[typ]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, typ)
	}
	return e.validate(e.compiled, props)
}

// Resolve completes a payload for its first mount: it fills componentUrl and
// version, layers props over the defaults and validates the result.
//
// A type missing from the catalog passes through unchanged when the payload
// names its own componentUrl.
func (c *Catalog) Resolve(p domain.ComponentPayload) (domain.ComponentPayload, error) {
	e, ok, err := c.describe(&p)
	if !ok || err != nil {
		return p, err
	}

	merged := make(map[string]any, len(e.Defaults)+len(p.Props))
	for k, v := range e.Defaults {
		merged[k] = v
	}
	for k, v := range p.Props {
		merged[k] = v
	}
	p.Props = merged

	if err := e.validate(e.compiled, p.Props); err != nil {
		return p, err
	}
	return p, nil
}

// ResolveUpdate completes a payload that may only update a mounted slot.
// Defaults are not layered and required properties may be absent, but the
// props that are present must match the schema.
func (c *Catalog) ResolveUpdate(p domain.ComponentPayload) (domain.ComponentPayload, error) {
	e, ok, err := c.describe(&p)
	if !ok || err != nil {
		return p, err
	}
	if err := e.validate(e.partial, p.Props); err != nil {
		return p, err
	}
	return p, nil
}

// describe fills the definition fields of p from its entry.
// ok is false when p passes through as an out-of-catalog component.
func (c *Catalog) describe(p *domain.ComponentPayload) (*Entry, bool, error) {
	e, ok := c.Lookup(p.Type)
	if !ok {
		if p.ComponentURL != "" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownComponent, p.Type)
	}

	if p.ComponentURL == "" {
		p.ComponentURL = e.ComponentURL
	}
	if p.Version == "" {
		p.Version = e.Version
	}
	if e.Category != "" {
		meta := domain.CloneMap(p.Metadata)
		if meta == nil {
			meta = map[string]any{}
		}
		if _, set := meta[domain.MetaCategory]; !set {
			meta[domain.MetaCategory] = e.Category
		}
		p.Metadata = meta
	}
	return &e, true, nil
}

func (e *Entry) validate(schema *openapi3.Schema, props map[string]any) error {
	if schema == nil {
		return nil
	}
	value, err := normalize(props)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidProps, e.Type, err)
	}
	if err := schema.VisitJSON(value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidProps, e.Type, err)
	}
	return nil
}

// compile turns a YAML-decoded schema into an OpenAPI schema.
func compile(raw map[string]any) (*openapi3.Schema, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	schema := openapi3.NewSchema()
	if err := json.Unmarshal(data, schema); err != nil {
		return nil, err
	}
	if err := schema.Validate(context.Background()); err != nil {
		return nil, err
	}
	return schema, nil
}

// normalize converts props to the plain JSON value types the validator expects.
func normalize(props map[string]any) (any, error) {
	if props == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
