package resource_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata" // the zone database may be missing on CI images

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/resource"
	"github.com/pkordes/modelio/internal/schema"
	"github.com/pkordes/modelio/internal/tabular"
	"github.com/pkordes/modelio/testutil"
)

func TestExport_ForeignKeySurrogate(t *testing.T) {
	cfg := resource.Config{Model: "employee", Fields: []string{"id", "name", "manager"}}
	cfg.Attach("manager", resource.ForeignKey("email"))
	r := newResource(t, staffRegistry(t), cfg)

	var gotProj []repo.Projection
	rr := &mockRecordRepo{
		selectFn: func(_ context.Context, m *schema.Model, proj []repo.Projection, q repo.Query) ([]repo.Record, error) {
			assert.Equal(t, "employee", m.Name)
			assert.Nil(t, q.IDs)
			gotProj = proj
			return []repo.Record{
				{ID: 1, Values: map[string]any{"name": "A", "manager__email": "m1@x.com"}},
				{ID: 2, Values: map[string]any{"name": "B", "manager__email": nil}},
			}, nil
		},
	}

	table, err := r.Export(context.Background(), rr, repo.Query{}, resource.Options{})
	require.NoError(t, err)

	require.Len(t, gotProj, 2)
	assert.Equal(t, "manager__email", gotProj[1].Alias, "relation projected under a composite alias")
	assert.Equal(t, "email", gotProj[1].Column)
	require.NotNil(t, gotProj[1].Via)
	assert.Equal(t, "manager", gotProj[1].Via.Name)

	assert.Equal(t, []string{"id", "name", "manager"}, table.Columns, "alias renamed back")

	var buf bytes.Buffer
	require.NoError(t, tabular.Write(&buf, tabular.CSV, table))
	assert.Equal(t, "id,name,manager\n1,A,m1@x.com\n2,B,\n", buf.String())
}

func TestExport_Empty(t *testing.T) {
	r := newResource(t, staffRegistry(t), resource.Config{Model: "employee", AllFields: true})
	rr := &mockRecordRepo{
		selectFn: func(context.Context, *schema.Model, []repo.Projection, repo.Query) ([]repo.Record, error) {
			return nil, nil
		},
	}

	_, err := r.Export(context.Background(), rr, repo.Query{IDs: []int64{}}, resource.Options{})

	assert.ErrorIs(t, err, resource.ErrNoRecords)
	assert.ErrorIs(t, err, domain.ErrExport)
	assert.Contains(t, err.Error(), "cannot export without queryset")
}

func TestExport_SelectError(t *testing.T) {
	r := newResource(t, staffRegistry(t), resource.Config{Model: "employee", AllFields: true})
	boom := errors.New("boom")
	rr := &mockRecordRepo{
		selectFn: func(context.Context, *schema.Model, []repo.Projection, repo.Query) ([]repo.Record, error) {
			return nil, boom
		},
	}

	_, err := r.Export(context.Background(), rr, repo.Query{}, resource.Options{})

	assert.ErrorIs(t, err, boom)
}

func TestExport_MultiValuedJoined(t *testing.T) {
	cfg := resource.Config{Model: "stop", Fields: []string{"name", "tags"}}
	cfg.Attach("tags", resource.ManyToMany("slug"))
	r := newResource(t, testutil.SampleRegistry(t), cfg)

	rr := &mockRecordRepo{
		selectFn: func(_ context.Context, _ *schema.Model, proj []repo.Projection, _ repo.Query) ([]repo.Record, error) {
			assert.Len(t, proj, 1, "collections are not part of the bulk read")
			return []repo.Record{
				{ID: 1, Values: map[string]any{"name": "Moab"}},
				{ID: 2, Values: map[string]any{"name": "Zion"}},
			}, nil
		},
		relatedValuesFn: func(_ context.Context, _ *schema.Model, f schema.Field, ownerID int64, column string) ([]any, error) {
			assert.Equal(t, "tags", f.Name)
			assert.Equal(t, "slug", column)
			if ownerID == 1 {
				return []any{"desert", "hiking"}, nil
			}
			return nil, nil
		},
	}

	table, err := r.Export(context.Background(), rr, repo.Query{}, resource.Options{})

	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{int64(1), "Moab", "desert,hiking"},
		{int64(2), "Zion", ""},
	}, table.Rows)
}

func TestExport_TemporalFields(t *testing.T) {
	r := newResource(t, testutil.SampleRegistry(t), resource.Config{
		Model:  "stop",
		Fields: []string{"arrived_at", "departed_at", "check_in"},
	})
	tripRes := newResource(t, testutil.SampleRegistry(t), resource.Config{Model: "trip", Fields: []string{"start_date"}})

	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	opts := resource.Options{Location: denver}

	rr := &mockRecordRepo{
		selectFn: func(_ context.Context, m *schema.Model, _ []repo.Projection, _ repo.Query) ([]repo.Record, error) {
			if m.Name == "trip" {
				return []repo.Record{
					{ID: 1, Values: map[string]any{"start_date": time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}},
					{ID: 2, Values: map[string]any{"start_date": "2025-07-04"}},
					{ID: 3, Values: map[string]any{"start_date": nil}},
				}, nil
			}
			return []repo.Record{{ID: 1, Values: map[string]any{
				"arrived_at":  time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC),
				"departed_at": nil,
				"check_in":    pgtype.Time{Microseconds: int64(15*time.Hour/time.Microsecond) + 1500, Valid: true},
			}}}, nil
		},
	}

	table, err := r.Export(context.Background(), rr, repo.Query{}, opts)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "2025-06-01 12:30:00", "", "15:00:00"}, table.Rows[0])

	table, err = tripRes.Export(context.Background(), rr, repo.Query{}, opts)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", table.Rows[0][1], "dates are not shifted into the display zone")
	assert.Equal(t, "2025-07-04", table.Rows[1][1])
	assert.Equal(t, "", table.Rows[2][1])
}

func TestExport_CustomLayout(t *testing.T) {
	r := newResource(t, testutil.SampleRegistry(t), resource.Config{Model: "stop", Fields: []string{"arrived_at"}})
	rr := &mockRecordRepo{
		selectFn: func(context.Context, *schema.Model, []repo.Projection, repo.Query) ([]repo.Record, error) {
			return []repo.Record{{ID: 1, Values: map[string]any{"arrived_at": "2025-06-01 18:30:00"}}}, nil
		},
	}

	table, err := r.Export(context.Background(), rr, repo.Query{}, resource.Options{DateTimeLayout: time.RFC3339})

	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T18:30:00Z", table.Rows[0][1], "stored text without offset is UTC")
}
