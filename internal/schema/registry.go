package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pkordes/modelio/internal/domain"
)

// Registry holds every model known to the application, keyed by name.
// It is built once at startup and read-only afterwards.
type Registry struct {
	models map[string]*Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Register adds a model after filling in defaults: PK defaults to "id",
// Table defaults to the model name, and concrete fields without a column
// use their name (or "<name>_id" for foreign keys).
// Returns an error if the name is taken or the model is malformed.
// Relation targets are checked by Validate once every model is registered.
func (r *Registry) Register(m Model) error {
	if m.Name == "" {
		return errors.New("schema.Registry.Register: model name is required")
	}
	if _, exists := r.models[m.Name]; exists {
		return fmt.Errorf("schema.Registry.Register: model %q already registered", m.Name)
	}
	if m.Table == "" {
		m.Table = m.Name
	}
	if m.PK == "" {
		m.PK = "id"
	}

	fields := make([]Field, 0, len(m.Fields)+1)
	seen := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema.Registry.Register: model %q: field name is required", m.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema.Registry.Register: model %q: duplicate field %q", m.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Concrete() && f.Column == "" {
			f.Column = f.Name
			if f.Relation.SingleValued() {
				f.Column = f.Name + "_id"
			}
		}
		fields = append(fields, f)
	}
	if !seen[m.PK] {
		// Models always have an integer identifier, declared or not.
		fields = append([]Field{{Name: m.PK, Column: m.PK, Type: TypeInteger}}, fields...)
	}
	m.Fields = fields

	r.models[m.Name] = &m
	return nil
}

// Validate checks that every relation points at a registered model and carries
// the link metadata its kind needs. All problems are reported together.
func (r *Registry) Validate() error {
	var errs []string
	for _, name := range r.Names() {
		m := r.models[name]
		if pk := m.PKField(); pk.Relation != RelNone || pk.Type != TypeInteger {
			errs = append(errs, fmt.Sprintf("%s.%s: identifier must be an integer column", m.Name, m.PK))
		}
		for _, f := range m.Fields {
			if f.Relation == RelNone {
				continue
			}
			path := m.Name + "." + f.Name
			if _, ok := r.models[f.Related]; !ok {
				errs = append(errs, fmt.Sprintf("%s: related model %q is not registered", path, f.Related))
			}
			switch f.Relation {
			case RelOneToMany:
				if f.RelatedColumn == "" {
					errs = append(errs, path+": one_to_many requires related_column")
				}
			case RelManyToMany:
				if f.JoinTable == "" || f.JoinOwnerColumn == "" || f.JoinRelatedColumn == "" {
					errs = append(errs, path+": many_to_many requires join_table, join_owner_column and join_related_column")
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("schema validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Model returns the model registered under name.
func (r *Registry) Model(name string) (*Model, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("schema: model %q: %w", name, domain.ErrNotFound)
	}
	return m, nil
}

// Related returns the target model of a relation field.
func (r *Registry) Related(f Field) (*Model, error) {
	if f.Relation == RelNone {
		return nil, fmt.Errorf("schema: field %q is not a relation", f.Name)
	}
	return r.Model(f.Related)
}

// Names returns all registered model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
