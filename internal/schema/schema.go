// Package schema describes record types the way an ORM exposes them: ordered
// fields with a value type and, for relations, the related model and the
// columns that link the two tables.
//
// The schema is the only thing the resource layer knows about the database.
// It never issues queries itself; the repo package turns it into SQL.
package schema

import "fmt"

// FieldType is the value type a column stores.
type FieldType int

const (
	TypeText FieldType = iota
	TypeInteger
	TypeFloat
	TypeBool
	TypeDateTime
	TypeDate
	TypeTime
)

var fieldTypeNames = map[FieldType]string{
	TypeText:     "text",
	TypeInteger:  "integer",
	TypeFloat:    "float",
	TypeBool:     "bool",
	TypeDateTime: "datetime",
	TypeDate:     "date",
	TypeTime:     "time",
}

// String returns the catalog spelling of the type.
func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ParseFieldType maps a catalog type name to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	for t, name := range fieldTypeNames {
		if name == s {
			return t, nil
		}
	}
	switch s {
	case "", "string":
		return TypeText, nil
	case "int":
		return TypeInteger, nil
	case "timestamp":
		return TypeDateTime, nil
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// Temporal reports whether values of this type need display conversion.
func (t FieldType) Temporal() bool {
	return t == TypeDateTime || t == TypeDate || t == TypeTime
}

// Relation is the relation kind of a field.
type Relation int

const (
	RelNone Relation = iota
	RelOneToOne
	RelManyToOne
	RelOneToMany
	RelManyToMany
)

var relationNames = map[Relation]string{
	RelNone:       "none",
	RelOneToOne:   "one_to_one",
	RelManyToOne:  "many_to_one",
	RelOneToMany:  "one_to_many",
	RelManyToMany: "many_to_many",
}

func (r Relation) String() string {
	if s, ok := relationNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Relation(%d)", int(r))
}

// ParseRelation maps a catalog relation name to a Relation.
// "foreign_key" is accepted as an alias for many_to_one.
func ParseRelation(s string) (Relation, error) {
	for r, name := range relationNames {
		if name == s {
			return r, nil
		}
	}
	switch s {
	case "":
		return RelNone, nil
	case "foreign_key", "foreign":
		return RelManyToOne, nil
	}
	return 0, fmt.Errorf("unknown relation %q", s)
}

// SingleValued reports whether the relation resolves to at most one record
// and is stored as a column on the owner table.
func (r Relation) SingleValued() bool {
	return r == RelOneToOne || r == RelManyToOne
}

// MultiValued reports whether the relation resolves to a collection.
func (r Relation) MultiValued() bool {
	return r == RelOneToMany || r == RelManyToMany
}

// Field describes one attribute of a model.
type Field struct {
	// Name is the attribute name used in resource configurations and column headers.
	Name string

	// Column is the database column. For one-to-one and many-to-one relations
	// it is the foreign key column on the owner table. Empty for multi-valued
	// relations, which have no column on the owner table.
	Column string

	// Type is the stored value type. Ignored for relations.
	Type FieldType

	// Relation is RelNone for plain columns.
	Relation Relation

	// Related names the target model of a relation.
	Related string

	// RelatedColumn is the back-reference column on the related table that
	// points at the owner. One-to-many only.
	RelatedColumn string

	// JoinTable, JoinOwnerColumn and JoinRelatedColumn link both sides of a
	// many-to-many relation.
	JoinTable         string
	JoinOwnerColumn   string
	JoinRelatedColumn string
}

// Concrete reports whether the field is stored as a column on the owner table.
func (f Field) Concrete() bool {
	return !f.Relation.MultiValued()
}

// Model is a record type backed by one table.
type Model struct {
	Name   string
	Table  string
	PK     string // identifier field name, defaults to "id"
	Fields []Field
}

// Field returns the field with the given name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PKField returns the identifier field.
func (m *Model) PKField() Field {
	f, _ := m.Field(m.PK)
	return f
}

// PKColumn returns the identifier column.
func (m *Model) PKColumn() string {
	return m.PKField().Column
}

// ConcreteFields returns every field stored on the owner table (scalar,
// one-to-one and many-to-one) in declaration order.
func (m *Model) ConcreteFields() []Field {
	var out []Field
	for _, f := range m.Fields {
		if f.Concrete() {
			out = append(out, f)
		}
	}
	return out
}

// ManyToManyFields returns the many-to-many fields in declaration order.
// One-to-many back references are not included: they are only reachable
// when a resource names them explicitly.
func (m *Model) ManyToManyFields() []Field {
	var out []Field
	for _, f := range m.Fields {
		if f.Relation == RelManyToMany {
			out = append(out, f)
		}
	}
	return out
}
