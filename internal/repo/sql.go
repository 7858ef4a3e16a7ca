package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/schema"
)

// sqlRecordRepo is the database/sql implementation of RecordRepo.
type sqlRecordRepo struct {
	db sqlDB
	b  builder
}

// NewSQLRecordRepo constructs a RecordRepo on a database/sql handle.
// Pass *sql.DB in production or *sql.Tx to scope writes to a transaction.
func NewSQLRecordRepo(db sqlDB, d Dialect, reg *schema.Registry) RecordRepo {
	return &sqlRecordRepo{db: db, b: builder{d: d, reg: reg}}
}

// Select runs the projected bulk read.
func (r *sqlRecordRepo) Select(ctx context.Context, m *schema.Model, proj []Projection, q Query) ([]Record, error) {
	if q.IDs != nil && len(q.IDs) == 0 {
		return nil, nil
	}
	st, err := r.b.selectRecords(m, proj, q)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, st.sql, st.args...)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Select: %w", err)
	}
	defer rows.Close()

	var (
		out  []Record
		seen = map[int64]bool{}
	)
	for rows.Next() {
		vals, err := scanAny(rows, len(proj)+1)
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
func (r *sqlRecordRepo) RelatedValues(ctx context.Context, m *schema.Model, f schema.Field, ownerID int64, column string) ([]any, error) {
	st, err := r.b.relatedValues(f, ownerID, column)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.RelatedValues: %s.%s: %w", m.Name, f.Name, err)
	}

	rows, err := r.db.QueryContext(ctx, st.sql, st.args...)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.RelatedValues: %s.%s: %w", m.Name, f.Name, err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("repo.RecordRepo.RelatedValues: scan: %w", err)
		}
		out = append(out, normalizeValue(v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.RelatedValues: rows: %w", err)
	}
	return out, nil
}

// LookupID returns the first identifier whose column equals value.
func (r *sqlRecordRepo) LookupID(ctx context.Context, m *schema.Model, column string, value any) (int64, error) {
	st := r.b.lookupID(m, column, value)

	var raw any
	if err := r.db.QueryRowContext(ctx, st.sql, st.args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// Create inserts a row and returns the database-assigned identifier, read
// through RETURNING where the dialect has it and LastInsertId otherwise.
func (r *sqlRecordRepo) Create(ctx context.Context, m *schema.Model, values map[string]any) (int64, error) {
	st := r.b.insert(m, values)

	if r.b.d.returning {
		var raw any
		if err := r.db.QueryRowContext(ctx, st.sql, st.args...).Scan(&raw); err != nil {
			return 0, fmt.Errorf("repo.RecordRepo.Create: %s: %w", m.Name, err)
		}
		id, err := toInt64(raw)
		if err != nil {
			return 0, fmt.Errorf("repo.RecordRepo.Create: %w", err)
		}
		return id, nil
	}

	res, err := r.db.ExecContext(ctx, st.sql, st.args...)
	if err != nil {
		return 0, fmt.Errorf("repo.RecordRepo.Create: %s: %w", m.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("repo.RecordRepo.Create: %s: last insert id: %w", m.Name, err)
	}
	return id, nil
}

// Update overwrites columns of one record.
func (r *sqlRecordRepo) Update(ctx context.Context, m *schema.Model, id int64, values map[string]any) error {
	st, probe := r.b.update(m, id, values)

	if probe {
		var one any
		if err := r.db.QueryRowContext(ctx, st.sql, st.args...).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("repo.RecordRepo.Update: %s %d: %w", m.Name, id, domain.ErrNotFound)
			}
			return fmt.Errorf("repo.RecordRepo.Update: %s %d: %w", m.Name, id, err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx, st.sql, st.args...)
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.Update: %s %d: %w", m.Name, id, err)
	}
	// mysql reports matched rather than changed rows because Open forces clientFoundRows.
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.Update: %s %d: rows affected: %w", m.Name, id, err)
	}
	if n == 0 {
		return fmt.Errorf("repo.RecordRepo.Update: %s %d: %w", m.Name, id, domain.ErrNotFound)
	}
	return nil
}

// AddRelated attaches one record to a multi-valued relation.
func (r *sqlRecordRepo) AddRelated(ctx context.Context, m *schema.Model, f schema.Field, ownerID, relatedID int64) error {
	st, err := r.b.addRelated(f, ownerID, relatedID)
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.AddRelated: %s.%s: %w", m.Name, f.Name, err)
	}
	if _, err := r.db.ExecContext(ctx, st.sql, st.args...); err != nil {
		return fmt.Errorf("repo.RecordRepo.AddRelated: %s.%s: %w", m.Name, f.Name, err)
	}
	return nil
}

func scanAny(rows *sql.Rows, n int) ([]any, error) {
	vals := make([]any, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}
