package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/schema"
	"github.com/pkordes/modelio/testutil"
)

// backends lists the repository implementations every test runs against.
// The Postgres backend opens a transaction that is rolled back when the test
// finishes; it is skipped when TEST_DATABASE_URL is not set.
var backends = map[string]func(t *testing.T, reg *schema.Registry) repo.RecordRepo{
	"sqlite": func(t *testing.T, reg *schema.Registry) repo.RecordRepo {
		return repo.NewSQLRecordRepo(testutil.NewSQLite(t), repo.SQLite, reg)
	},
	"pgx": func(t *testing.T, reg *schema.Registry) repo.RecordRepo {
		pool := testutil.NewPool(t)
		tx, err := pool.Begin(context.Background())
		require.NoError(t, err, "begin transaction")
		t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
		return repo.NewPGRecordRepo(tx, reg)
	},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, r repo.RecordRepo, reg *schema.Registry)) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			reg := testutil.SampleRegistry(t)
			fn(t, open(t, reg), reg)
		})
	}
}

func model(t *testing.T, reg *schema.Registry, name string) *schema.Model {
	t.Helper()
	m, err := reg.Model(name)
	require.NoError(t, err)
	return m
}

func TestRecordRepo_CreateAndSelect(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repo.RecordRepo, reg *schema.Registry) {
		ctx := context.Background()
		travellers, trips := model(t, reg, "traveller"), model(t, reg, "trip")

		leaderID, err := r.Create(ctx, travellers, map[string]any{"name": "Ann", "email": "m1@x.com"})
		require.NoError(t, err)
		first, err := r.Create(ctx, trips, map[string]any{"name": "A", "leader_id": leaderID})
		require.NoError(t, err)
		second, err := r.Create(ctx, trips, map[string]any{"name": "B"})
		require.NoError(t, err)
		assert.Greater(t, second, first)

		leader, _ := trips.Field("leader")
		proj := []repo.Projection{
			{Alias: "name", Column: "name"},
			{Alias: "leader__email", Column: "email", Via: &leader},
		}

		got, err := r.Select(ctx, trips, proj, repo.Query{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first, got[0].ID)
		assert.Equal(t, "A", got[0].Values["name"])
		assert.Equal(t, "m1@x.com", got[0].Values["leader__email"])
		assert.Equal(t, "B", got[1].Values["name"])
		assert.Nil(t, got[1].Values["leader__email"], "missing relation reads as null")

		got, err = r.Select(ctx, trips, proj, repo.Query{IDs: []int64{second, second}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, second, got[0].ID)

		got, err = r.Select(ctx, trips, proj, repo.Query{IDs: []int64{}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestRecordRepo_LookupID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repo.RecordRepo, reg *schema.Registry) {
		ctx := context.Background()
		tags := model(t, reg, "tag")

		id, err := r.Create(ctx, tags, map[string]any{"name": "Camp", "slug": "camp"})
		require.NoError(t, err)

		got, err := r.LookupID(ctx, tags, "slug", "camp")
		require.NoError(t, err)
		assert.Equal(t, id, got)

		_, err = r.LookupID(ctx, tags, "slug", "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRecordRepo_Update(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repo.RecordRepo, reg *schema.Registry) {
		ctx := context.Background()
		tags := model(t, reg, "tag")

		id, err := r.Create(ctx, tags, map[string]any{"name": "Camp", "slug": "camp"})
		require.NoError(t, err)

		require.NoError(t, r.Update(ctx, tags, id, map[string]any{"name": "Campground"}))
		require.NoError(t, r.Update(ctx, tags, id, map[string]any{"name": "Campground"}), "unchanged values still match")
		require.NoError(t, r.Update(ctx, tags, id, nil), "empty update succeeds for an existing record")

		got, err := r.Select(ctx, tags, []repo.Projection{{Alias: "name", Column: "name"}}, repo.Query{IDs: []int64{id}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Campground", got[0].Values["name"])

		assert.ErrorIs(t, r.Update(ctx, tags, id+1000, map[string]any{"name": "x"}), domain.ErrNotFound)
		assert.ErrorIs(t, r.Update(ctx, tags, id+1000, nil), domain.ErrNotFound)
	})
}

func TestRecordRepo_AddRelated_ManyToMany(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repo.RecordRepo, reg *schema.Registry) {
		ctx := context.Background()
		stops, tags := model(t, reg, "stop"), model(t, reg, "tag")
		field, _ := stops.Field("tags")

		stopID, err := r.Create(ctx, stops, map[string]any{"name": "Moab"})
		require.NoError(t, err)
		a, err := r.Create(ctx, tags, map[string]any{"name": "A", "slug": "a"})
		require.NoError(t, err)
		b, err := r.Create(ctx, tags, map[string]any{"name": "B", "slug": "b"})
		require.NoError(t, err)

		require.NoError(t, r.AddRelated(ctx, stops, field, stopID, b))
		require.NoError(t, r.AddRelated(ctx, stops, field, stopID, a))
		require.NoError(t, r.AddRelated(ctx, stops, field, stopID, a), "attaching twice is a no-op")

		got, err := r.RelatedValues(ctx, stops, field, stopID, "slug")
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, got, "ordered by related identifier")
	})
}

func TestRecordRepo_AddRelated_OneToMany(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repo.RecordRepo, reg *schema.Registry) {
		ctx := context.Background()
		trips, stops := model(t, reg, "trip"), model(t, reg, "stop")
		field, _ := trips.Field("stops")

		tripID, err := r.Create(ctx, trips, map[string]any{"name": "Loop"})
		require.NoError(t, err)
		stopID, err := r.Create(ctx, stops, map[string]any{"name": "Zion"})
		require.NoError(t, err)

		require.NoError(t, r.AddRelated(ctx, trips, field, tripID, stopID))

		got, err := r.RelatedValues(ctx, trips, field, tripID, "name")
		require.NoError(t, err)
		assert.Equal(t, []any{"Zion"}, got)
	})
}
