package catalog_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/modelio/internal/catalog"
	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/resource"
)

func TestLoad_Sample(t *testing.T) {
	c, err := catalog.Load("testdata/sample.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"stop", "tag", "traveller", "trip"}, c.Registry.Names())

	var names []string
	for _, r := range c.Resources() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"travellers", "trips", "stops", "trip-stops", "tags"}, names, "catalog order is kept")

	trips, err := c.Resource("trips")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "start_date", "notes", "leader"}, trips.Columns())

	stops, err := c.Resource("stops")
	require.NoError(t, err)
	byName := map[string]resource.FieldDescriptor{}
	for _, fd := range stops.Fields() {
		byName[fd.Name] = fd
	}
	assert.Equal(t, resource.KindForeign, byName["trip"].Kind)
	assert.Equal(t, "name", byName["trip"].Surrogate)
	assert.Equal(t, resource.KindManyToMany, byName["tags"].Kind, "kind inferred from the schema relation")
	assert.Equal(t, "slug", byName["tags"].Surrogate)
	assert.Equal(t, resource.KindNormal, byName["nights"].Kind)
}

func TestLoad_RootCatalogMatchesSample(t *testing.T) {
	c, err := catalog.Load("../../catalog.yaml")
	require.NoError(t, err)
	assert.Len(t, c.Resources(), 5)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := catalog.Load("testdata/nope.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.Load")
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := catalog.Load("testdata/unknown_key.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tabel")
}

func TestLoad_InvalidModel(t *testing.T) {
	_, err := catalog.Load("testdata/invalid.yaml")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "models[0] tag")
	assert.Contains(t, err.Error(), `unknown field type "uuid"`)
}

func TestParse_Empty(t *testing.T) {
	_, err := catalog.Parse(strings.NewReader(""))

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParse_RelationValidationReportsEveryProblem(t *testing.T) {
	doc := `
models:
  - name: stop
    fields:
      - {name: tags, relation: many_to_many, related: tag}
      - {name: trip, relation: many_to_one, related: trip}
`
	_, err := catalog.Parse(strings.NewReader(doc))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "stop.tags: related model \"tag\" is not registered")
	assert.Contains(t, err.Error(), "stop.trip: related model \"trip\" is not registered")
}

func TestParse_ResourceErrors(t *testing.T) {
	const models = `
models:
  - name: tag
    fields: [{name: slug}]
  - name: stop
    fields:
      - name: tags
        relation: many_to_many
        related: tag
        join_table: stop_tags
        join_owner_column: stop_id
        join_related_column: tag_id
resources:
`
	tests := []struct {
		name     string
		resource string
		want     string
	}{
		{
			name:     "unknown model",
			resource: "  - {name: x, model: nope, all_fields: true}",
			want:     `model "nope" is not registered`,
		},
		{
			name:     "no selection",
			resource: "  - {name: x, model: tag}",
			want:     "fields is required",
		},
		{
			name:     "bad kind",
			resource: "  - {name: x, model: stop, all_fields: true, relations: {tags: {kind: sideways}}}",
			want:     "relations.tags",
		},
		{
			name:     "relation on scalar",
			resource: "  - {name: x, model: tag, all_fields: true, relations: {slug: {column: id}}}",
			want:     "relations.slug: field is not a relation",
		},
		{
			name:     "duplicate",
			resource: "  - {name: x, model: tag, all_fields: true}\n  - {name: x, model: tag, all_fields: true}",
			want:     `duplicate resource "x"`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.Parse(strings.NewReader(models + tc.resource + "\n"))

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCatalog_UnknownResource(t *testing.T) {
	c, err := catalog.Load("testdata/sample.yaml")
	require.NoError(t, err)

	_, err = c.Resource("nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
