// Package catalog loads the declarative description of models and resources
// from YAML. A catalog is the only configuration the commands need: it builds
// the schema registry and resolves every resource against it at startup.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/resource"
	"github.com/pkordes/modelio/internal/schema"
)

// File is the YAML document.
type File struct {
	Models    []ModelSpec    `yaml:"models"`
	Resources []ResourceSpec `yaml:"resources"`
}

// ModelSpec describes one model.
type ModelSpec struct {
	Name   string      `yaml:"name"`
	Table  string      `yaml:"table"`
	PK     string      `yaml:"pk"`
	Fields []FieldSpec `yaml:"fields"`
}

// FieldSpec describes one model field.
type FieldSpec struct {
	Name              string `yaml:"name"`
	Column            string `yaml:"column"`
	Type              string `yaml:"type"`
	Relation          string `yaml:"relation"`
	Related           string `yaml:"related"`
	RelatedColumn     string `yaml:"related_column"`
	JoinTable         string `yaml:"join_table"`
	JoinOwnerColumn   string `yaml:"join_owner_column"`
	JoinRelatedColumn string `yaml:"join_related_column"`
}

// ResourceSpec describes one resource. Relations map field names to the
// related column used as surrogate; Kind may be left out to follow the schema.
type ResourceSpec struct {
	Name      string                    `yaml:"name"`
	Model     string                    `yaml:"model"`
	Fields    []string                  `yaml:"fields"`
	Exclude   []string                  `yaml:"exclude"`
	AllFields bool                      `yaml:"all_fields"`
	Relations map[string]DescriptorSpec `yaml:"relations"`
}

// DescriptorSpec is a relation descriptor in YAML.
type DescriptorSpec struct {
	Kind   string `yaml:"kind"`
	Column string `yaml:"column"`
}

// Catalog is a loaded, validated catalog.
type Catalog struct {
	Registry  *schema.Registry
	resources []*resource.Resource
	byName    map[string]*resource.Resource
}

// Load reads and builds the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog.Load: %w", err)
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("catalog.Load: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog document and builds it. Unknown keys are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty catalog: %w", domain.ErrConfiguration)
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return Build(f)
}

// Build registers every model, validates relations and resolves every resource.
func Build(f File) (*Catalog, error) {
	var errs []string

	reg := schema.NewRegistry()
	for i, ms := range f.Models {
		m, err := ms.model()
		if err == nil {
			err = reg.Register(m)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("models[%d] %s: %v", i, ms.Name, err))
		}
	}
	if len(errs) == 0 {
		if err := reg.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return nil, invalid(errs)
	}

	c := &Catalog{Registry: reg, byName: make(map[string]*resource.Resource)}
	for i, rs := range f.Resources {
		cfg, err := rs.config(reg)
		if err != nil {
			errs = append(errs, fmt.Sprintf("resources[%d] %s: %v", i, rs.Name, err))
			continue
		}
		res, err := resource.New(reg, cfg)
		if err != nil {
			errs = append(errs, fmt.Sprintf("resources[%d]: %v", i, err))
			continue
		}
		if _, dup := c.byName[res.Name()]; dup {
			errs = append(errs, fmt.Sprintf("resources[%d]: duplicate resource %q", i, res.Name()))
			continue
		}
		c.byName[res.Name()] = res
		c.resources = append(c.resources, res)
	}
	if len(errs) > 0 {
		return nil, invalid(errs)
	}
	return c, nil
}

func invalid(errs []string) error {
	return fmt.Errorf("invalid catalog:\n  - %s\n%w", strings.Join(errs, "\n  - "), domain.ErrConfiguration)
}

func (ms ModelSpec) model() (schema.Model, error) {
	m := schema.Model{Name: ms.Name, Table: ms.Table, PK: ms.PK}
	for j, fs := range ms.Fields {
		typ, err := schema.ParseFieldType(fs.Type)
		if err != nil {
			return schema.Model{}, fmt.Errorf("fields[%d] %s: %w", j, fs.Name, err)
		}
		rel, err := schema.ParseRelation(fs.Relation)
		if err != nil {
			return schema.Model{}, fmt.Errorf("fields[%d] %s: %w", j, fs.Name, err)
		}
		m.Fields = append(m.Fields, schema.Field{
			Name:              fs.Name,
			Column:            fs.Column,
			Type:              typ,
			Relation:          rel,
			Related:           fs.Related,
			RelatedColumn:     fs.RelatedColumn,
			JoinTable:         fs.JoinTable,
			JoinOwnerColumn:   fs.JoinOwnerColumn,
			JoinRelatedColumn: fs.JoinRelatedColumn,
		})
	}
	return m, nil
}

// kindFor is the descriptor kind matching a schema relation.
var kindFor = map[schema.Relation]resource.Kind{
	schema.RelOneToOne:   resource.KindOneToOne,
	schema.RelManyToOne:  resource.KindForeign,
	schema.RelOneToMany:  resource.KindRelated,
	schema.RelManyToMany: resource.KindManyToMany,
}

func (rs ResourceSpec) config(reg *schema.Registry) (resource.Config, error) {
	cfg := resource.Config{
		Name:      rs.Name,
		Model:     rs.Model,
		Fields:    rs.Fields,
		Exclude:   rs.Exclude,
		AllFields: rs.AllFields,
	}
	m, err := reg.Model(rs.Model)
	if err != nil {
		// resource.New reports unknown models with resource context.
		return cfg, nil
	}
	for name, ds := range rs.Relations {
		var kind resource.Kind
		if ds.Kind != "" {
			if kind, err = resource.ParseKind(ds.Kind); err != nil {
				return cfg, fmt.Errorf("relations.%s: %w", name, err)
			}
		} else {
			f, ok := m.Field(name)
			if !ok {
				return cfg, fmt.Errorf("relations.%s: unknown field", name)
			}
			if kind, ok = kindFor[f.Relation]; !ok {
				return cfg, fmt.Errorf("relations.%s: field is not a relation", name)
			}
		}
		cfg.Attach(name, resource.Descriptor{Kind: kind, Column: ds.Column})
	}
	return cfg, nil
}

// Resources returns every resource in catalog order.
func (c *Catalog) Resources() []*resource.Resource {
	out := make([]*resource.Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// Resource returns the resource registered under name.
func (c *Catalog) Resource(name string) (*resource.Resource, error) {
	r, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("catalog.Catalog.Resource: %q: %w", name, domain.ErrNotFound)
	}
	return r, nil
}
