// Package repo contains all database access logic for modelio.
// It is the persistence surface the resource layer depends on: projected bulk
// reads, related-collection reads, lookup by column, create, update by
// identifier, and adding members to a relation.
// No business logic lives here: only SQL generation, execution and type mapping.
package repo

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/modelio/internal/schema"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sqlDB is the database/sql counterpart of db, satisfied by *sql.DB and *sql.Tx.
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Projection selects one output column of a bulk read.
type Projection struct {
	// Alias is the key the value is returned under.
	Alias string

	// Column is the column to read: on the owner table when Via is nil,
	// otherwise on the related table reached through Via.
	Column string

	// Via is a one-to-one or many-to-one field to LEFT JOIN through.
	Via *schema.Field
}

// Query restricts a bulk read. A nil IDs slice reads every record;
// a non-nil empty slice reads none.
type Query struct {
	IDs []int64
}

// Record is one row of a bulk read.
type Record struct {
	ID     int64
	Values map[string]any
}

// RecordRepo defines the persistence operations used by exports and imports.
// Every call is a single blocking round trip; nothing is batched or wrapped in
// a transaction here. Callers that want atomicity pass a transaction as the
// underlying connection.
type RecordRepo interface {
	// Select returns the projected records matching q, ordered by identifier
	// ascending. Duplicate identifiers collapse to the first row.
	Select(ctx context.Context, m *schema.Model, proj []Projection, q Query) ([]Record, error)

	// RelatedValues returns column of every record attached to ownerID through
	// the multi-valued field f, ordered by the related identifier.
	RelatedValues(ctx context.Context, m *schema.Model, f schema.Field, ownerID int64, column string) ([]any, error)

	// LookupID returns the identifier of the first record of m whose column
	// equals value. Returns domain.ErrNotFound when nothing matches.
	LookupID(ctx context.Context, m *schema.Model, column string, value any) (int64, error)

	// Create inserts a record from column values and returns its identifier.
	Create(ctx context.Context, m *schema.Model, values map[string]any) (int64, error)

	// Update overwrites the given columns of record id.
	// Returns domain.ErrNotFound if no record has that identifier.
	Update(ctx context.Context, m *schema.Model, id int64, values map[string]any) error

	// AddRelated attaches relatedID to ownerID through the multi-valued field f.
	// Existing members are never removed. Attaching twice is a no-op.
	AddRelated(ctx context.Context, m *schema.Model, f schema.Field, ownerID, relatedID int64) error
}
