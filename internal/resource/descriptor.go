package resource

import "fmt"

// Kind classifies how a field is flattened to a column.
type Kind int

const (
	// KindNormal is a plain column copied as is.
	KindNormal Kind = iota
	// KindOneToOne and KindForeign are single-valued relations flattened to
	// the related record's surrogate column. They behave identically.
	KindOneToOne
	KindForeign
	// KindRelated and KindManyToMany are multi-valued relations flattened to a
	// comma-joined list of surrogate values. They behave identically.
	KindRelated
	KindManyToMany
)

var kindNames = map[Kind]string{
	KindNormal:     "normal",
	KindOneToOne:   "one_to_one",
	KindForeign:    "foreign",
	KindRelated:    "related",
	KindManyToMany: "m2m",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText renders the kind name in JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SingleValued reports whether the kind resolves to at most one related record.
func (k Kind) SingleValued() bool { return k == KindOneToOne || k == KindForeign }

// MultiValued reports whether the kind resolves to a collection.
func (k Kind) MultiValued() bool { return k == KindRelated || k == KindManyToMany }

// ParseKind maps a catalog descriptor name to a Kind. The relation names of
// the schema package are accepted too.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "one_to_one":
		return KindOneToOne, nil
	case "foreign", "foreign_key", "many_to_one":
		return KindForeign, nil
	case "related", "one_to_many":
		return KindRelated, nil
	case "m2m", "many_to_many":
		return KindManyToMany, nil
	}
	return 0, fmt.Errorf("unknown relation descriptor %q", s)
}

// Descriptor declares how a relation field flattens: which column of the
// related record stands in for it in the table. An empty Column means the
// related model's identifier.
type Descriptor struct {
	Kind   Kind
	Column string
}

func newDescriptor(k Kind, column string) Descriptor {
	return Descriptor{Kind: k, Column: column}
}

// OneToOne flattens a one-to-one relation to column of the related record.
// An empty column means the related identifier.
func OneToOne(column string) Descriptor { return newDescriptor(KindOneToOne, column) }

// ForeignKey flattens a many-to-one relation to column of the related record.
func ForeignKey(column string) Descriptor { return newDescriptor(KindForeign, column) }

// OneToMany flattens a reverse relation to the joined column values of every
// related record. Reverse relations are only exported when declared this way.
func OneToMany(column string) Descriptor { return newDescriptor(KindRelated, column) }

// ManyToMany flattens a many-to-many relation to the joined column values of
// every related record.
func ManyToMany(column string) Descriptor { return newDescriptor(KindManyToMany, column) }
