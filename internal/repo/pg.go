package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/schema"
)

// pgRecordRepo is the pgx implementation of RecordRepo.
type pgRecordRepo struct {
	db db
	b  builder
}

// NewPGRecordRepo constructs a RecordRepo backed by the provided pgx connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPGRecordRepo(db db, reg *schema.Registry) RecordRepo {
	return &pgRecordRepo{db: db, b: builder{d: Postgres, reg: reg}}
}

// Select runs the projected bulk read.
func (r *pgRecordRepo) Select(ctx context.Context, m *schema.Model, proj []Projection, q Query) ([]Record, error) {
	if q.IDs != nil && len(q.IDs) == 0 {
		return nil, nil
	}
	st, err := r.b.selectRecords(m, proj, q)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Select: %w", err)
	}

	rows, err := r.db.Query(ctx, st.sql, st.args...)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Select: %w", err)
	}
	defer rows.Close()

	var (
		out  []Record
		seen = map[int64]bool{}
	)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("repo.RecordRepo.Select: scan: %w", err)
		}
		rec, err := toRecord(vals, proj)
		if err != nil {
			return nil, fmt.Errorf("repo.RecordRepo.Select: %w", err)
		}
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Select: rows: %w", err)
	}
	return out, nil
}

// RelatedValues reads the surrogate column of every attached record.
func (r *pgRecordRepo) RelatedValues(ctx context.Context, m *schema.Model, f schema.Field, ownerID int64, column string) ([]any, error) {
	st, err := r.b.relatedValues(f, ownerID, column)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.RelatedValues: %s.%s: %w", m.Name, f.Name, err)
	}

	rows, err := r.db.Query(ctx, st.sql, st.args...)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.RelatedValues: %s.%s: %w", m.Name, f.Name, err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("repo.RecordRepo.RelatedValues: scan: %w", err)
		}
		out = append(out, normalizeValue(vals[0]))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.RelatedValues: rows: %w", err)
	}
	return out, nil
}

// LookupID returns the first identifier whose column equals value.
func (r *pgRecordRepo) LookupID(ctx context.Context, m *schema.Model, column string, value any) (int64, error) {
	st := r.b.lookupID(m, column, value)

	var raw any
	if err := r.db.QueryRow(ctx, st.sql, st.args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("repo.RecordRepo.LookupID: %s.%s: %w", m.Name, column, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("repo.RecordRepo.LookupID: %s.%s: %w", m.Name, column, err)
	}
	id, err := toInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("repo.RecordRepo.LookupID: %w", err)
	}
	return id, nil
}

// Create inserts a row and returns the database-assigned identifier.
func (r *pgRecordRepo) Create(ctx context.Context, m *schema.Model, values map[string]any) (int64, error) {
	st := r.b.insert(m, values)

	var raw any
	if err := r.db.QueryRow(ctx, st.sql, st.args...).Scan(&raw); err != nil {
		return 0, fmt.Errorf("repo.RecordRepo.Create: %s: %w", m.Name, err)
	}
	id, err := toInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("repo.RecordRepo.Create: %w", err)
	}
	return id, nil
}

// Update overwrites columns of one record.
func (r *pgRecordRepo) Update(ctx context.Context, m *schema.Model, id int64, values map[string]any) error {
	st, probe := r.b.update(m, id, values)

	if probe {
		var one any
		if err := r.db.QueryRow(ctx, st.sql, st.args...).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("repo.RecordRepo.Update: %s %d: %w", m.Name, id, domain.ErrNotFound)
			}
			return fmt.Errorf("repo.RecordRepo.Update: %s %d: %w", m.Name, id, err)
		}
		return nil
	}

	tag, err := r.db.Exec(ctx, st.sql, st.args...)
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.Update: %s %d: %w", m.Name, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.RecordRepo.Update: %s %d: %w", m.Name, id, domain.ErrNotFound)
	}
	return nil
}

// AddRelated attaches one record to a multi-valued relation.
func (r *pgRecordRepo) AddRelated(ctx context.Context, m *schema.Model, f schema.Field, ownerID, relatedID int64) error {
	st, err := r.b.addRelated(f, ownerID, relatedID)
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.AddRelated: %s.%s: %w", m.Name, f.Name, err)
	}
	if _, err := r.db.Exec(ctx, st.sql, st.args...); err != nil {
		return fmt.Errorf("repo.RecordRepo.AddRelated: %s.%s: %w", m.Name, f.Name, err)
	}
	return nil
}

// toRecord maps one bulk-read row, identifier first, onto a Record.
func toRecord(vals []any, proj []Projection) (Record, error) {
	if len(vals) != len(proj)+1 {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(proj)+1, len(vals))
	}
	id, err := toInt64(vals[0])
	if err != nil {
		return Record{}, err
	}
	rec := Record{ID: id, Values: make(map[string]any, len(proj))}
	for i, p := range proj {
		rec.Values[p.Alias] = normalizeValue(vals[i+1])
	}
	return rec, nil
}
