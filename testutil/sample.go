package testutil

import (
	"testing"

	"github.com/pkordes/modelio/internal/schema"
)

// SampleRegistry returns the schema registry of the bundled sample database
// created by the migrations package: travellers lead trips, trips have stops,
// and stops carry tags.
func SampleRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg := schema.NewRegistry()
	for _, m := range sampleModels() {
		if err := reg.Register(m); err != nil {
			t.Fatalf("testutil.SampleRegistry: %v", err)
		}
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("testutil.SampleRegistry: %v", err)
	}
	return reg
}

func sampleModels() []schema.Model {
	return []schema.Model{
		{
			Name:  "traveller",
			Table: "travellers",
			Fields: []schema.Field{
				{Name: "name"},
				{Name: "email"},
			},
		},
		{
			Name:  "trip",
			Table: "trips",
			Fields: []schema.Field{
				{Name: "name"},
				{Name: "start_date", Type: schema.TypeDate},
				{Name: "notes"},
				{Name: "leader", Relation: schema.RelManyToOne, Related: "traveller"},
				{Name: "created_at", Type: schema.TypeDateTime},
				{Name: "stops", Relation: schema.RelOneToMany, Related: "stop", RelatedColumn: "trip_id"},
			},
		},
		{
			Name:  "stop",
			Table: "stops",
			Fields: []schema.Field{
				{Name: "trip", Relation: schema.RelManyToOne, Related: "trip"},
				{Name: "name"},
				{Name: "location"},
				{Name: "arrived_at", Type: schema.TypeDateTime},
				{Name: "departed_at", Type: schema.TypeDateTime},
				{Name: "check_in", Type: schema.TypeTime},
				{Name: "nights", Type: schema.TypeInteger},
				{Name: "rating", Type: schema.TypeFloat},
				{Name: "hookups", Type: schema.TypeBool},
				{
					Name: "tags", Relation: schema.RelManyToMany, Related: "tag",
					JoinTable: "stop_tags", JoinOwnerColumn: "stop_id", JoinRelatedColumn: "tag_id",
				},
			},
		},
		{
			Name:  "tag",
			Table: "tags",
			Fields: []schema.Field{
				{Name: "name"},
				{Name: "slug"},
			},
		},
	}
}
