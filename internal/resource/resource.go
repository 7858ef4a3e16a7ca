// Package resource maps one record type to a flat table and back.
//
// A Resource is built once from a Config: the field selection is resolved,
// the identifier is forced to the front and every relation gets a Descriptor
// naming the surrogate column that stands in for it. Export and Import then
// reuse that classification for every call.
package resource

import (
	"errors"
	"fmt"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/schema"
)

// Config selects the fields of one model. Exactly one of Fields, Exclude or
// AllFields must be set.
type Config struct {
	// Name identifies the resource; defaults to the model name.
	Name string

	// Model is the schema model the resource maps.
	Model string

	// Fields lists the exposed fields in column order.
	Fields []string

	// Exclude exposes every default field except these.
	Exclude []string

	// AllFields exposes every concrete and many-to-many field.
	AllFields bool

	// Relations declares how relation fields flatten. Relation fields without
	// an entry use their related identifier, except one-to-many fields which
	// must always be declared.
	Relations map[string]Descriptor
}

// Attach declares the descriptor of a relation field and returns c for chaining.
func (c *Config) Attach(field string, d Descriptor) *Config {
	if c.Relations == nil {
		c.Relations = make(map[string]Descriptor)
	}
	c.Relations[field] = d
	return c
}

// ConfigurationError reports a resource that cannot be resolved.
type ConfigurationError struct {
	Resource string
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("resource %q: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("resource %q: field %q: %s", e.Resource, e.Field, e.Reason)
}

// Unwrap lets callers match any configuration problem with domain.ErrConfiguration.
func (e *ConfigurationError) Unwrap() error { return domain.ErrConfiguration }

// ErrNoRecords is returned by Export when there is nothing to write.
var ErrNoRecords = fmt.Errorf("cannot export without queryset: %w", domain.ErrExport)

// FieldDescriptor is one resolved column of a resource.
type FieldDescriptor struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Surrogate string `json:"surrogate,omitempty"`

	field     schema.Field
	related   *schema.Model
	surrogate schema.Field
}

// Field returns the schema field behind the column.
func (fd FieldDescriptor) Field() schema.Field { return fd.field }

// Resource is a resolved, immutable resource configuration.
type Resource struct {
	name   string
	model  *schema.Model
	fields []FieldDescriptor
}

// New resolves cfg against the schema. Every configuration problem is
// reported here as a *ConfigurationError, before any data is touched.
func New(reg *schema.Registry, cfg Config) (*Resource, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Model
	}
	fail := func(field, format string, args ...any) error {
		return &ConfigurationError{Resource: name, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	m, err := reg.Model(cfg.Model)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fail("", "model %q is not registered", cfg.Model)
		}
		return nil, err
	}

	names, err := selectFields(m, cfg, fail)
	if err != nil {
		return nil, err
	}
	for relName := range cfg.Relations {
		if _, ok := m.Field(relName); !ok {
			return nil, fail(relName, "relation declared for unknown field")
		}
	}

	r := &Resource{name: name, model: m}
	for _, n := range names {
		f, _ := m.Field(n)
		fd, err := classify(reg, f, cfg.Relations, fail)
		if err != nil {
			return nil, err
		}
		r.fields = append(r.fields, fd)
	}
	return r, nil
}

// selectFields applies the selection strategy and forces the identifier to
// position 0 when it is not listed.
func selectFields(m *schema.Model, cfg Config, fail func(string, string, ...any) error) ([]string, error) {
	strategies := 0
	for _, set := range []bool{len(cfg.Fields) > 0, len(cfg.Exclude) > 0, cfg.AllFields} {
		if set {
			strategies++
		}
	}
	switch {
	case strategies == 0:
		return nil, fail("", "fields is required")
	case strategies > 1:
		return nil, fail("", "fields, exclude and all_fields are mutually exclusive")
	}

	var names []string
	seen := map[string]bool{}
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}

	if len(cfg.Fields) > 0 {
		for _, n := range cfg.Fields {
			if _, ok := m.Field(n); !ok {
				return nil, fail(n, "unknown field")
			}
			add(n)
		}
	} else {
		excluded := map[string]bool{}
		for _, n := range cfg.Exclude {
			if _, ok := m.Field(n); !ok {
				return nil, fail(n, "excluded field is unknown")
			}
			excluded[n] = true
		}
		// Reverse relations are never picked up implicitly.
		for _, f := range m.Fields {
			if f.Relation == schema.RelOneToMany || excluded[f.Name] {
				continue
			}
			add(f.Name)
		}
	}

	if !seen[m.PK] {
		names = append([]string{m.PK}, names...)
	}
	return names, nil
}

// classify pairs a schema field with its descriptor, synthesizing one for
// relations the caller did not declare.
func classify(reg *schema.Registry, f schema.Field, declared map[string]Descriptor, fail func(string, string, ...any) error) (FieldDescriptor, error) {
	d, explicit := declared[f.Name]

	if f.Relation == schema.RelNone {
		if explicit {
			return FieldDescriptor{}, fail(f.Name, "%s descriptor attached to a non-relation field", d.Kind)
		}
		return FieldDescriptor{Name: f.Name, Kind: KindNormal, field: f}, nil
	}

	related, err := reg.Related(f)
	if err != nil {
		return FieldDescriptor{}, fail(f.Name, "%v", err)
	}

	if !explicit {
		switch f.Relation {
		case schema.RelOneToOne:
			d = Descriptor{Kind: KindOneToOne}
		case schema.RelManyToOne:
			d = Descriptor{Kind: KindForeign}
		case schema.RelManyToMany:
			d = Descriptor{Kind: KindManyToMany}
		default:
			return FieldDescriptor{}, fail(f.Name, "one_to_many fields need an explicit OneToMany descriptor")
		}
	}
	if d.Column == "" {
		d.Column = related.PK
	}

	if d.Kind.SingleValued() != f.Relation.SingleValued() || d.Kind.MultiValued() != f.Relation.MultiValued() {
		return FieldDescriptor{}, fail(f.Name, "%s descriptor does not fit a %s field", d.Kind, f.Relation)
	}

	sf, ok := related.Field(d.Column)
	if !ok || !sf.Concrete() || sf.Relation != schema.RelNone {
		return FieldDescriptor{}, fail(f.Name, "surrogate %q is not a plain column of %q", d.Column, related.Name)
	}

	return FieldDescriptor{
		Name:      f.Name,
		Kind:      d.Kind,
		Surrogate: d.Column,
		field:     f,
		related:   related,
		surrogate: sf,
	}, nil
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Model returns the mapped model.
func (r *Resource) Model() *schema.Model { return r.model }

// Fields returns the resolved columns in order.
func (r *Resource) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(r.fields))
	copy(out, r.fields)
	return out
}

// Columns returns the table header the resource reads and writes.
func (r *Resource) Columns() []string {
	cols := make([]string, len(r.fields))
	for i, fd := range r.fields {
		cols[i] = fd.Name
	}
	return cols
}
