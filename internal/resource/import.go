package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/logging"
	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/schema"
	"github.com/pkordes/modelio/internal/tabular"
)

// pendingRelation is a multi-valued cell applied once the owner has an identifier.
type pendingRelation struct {
	fd  FieldDescriptor
	raw string
}

// Import applies every data row of t. Rows with an identifier update that
// record and are processed first; rows without one create a record. A row
// that fails is recorded in the report and the batch continues. Import only
// returns an error when it cannot run at all or ctx is cancelled, in which
// case the report covers the rows processed so far.
func (r *Resource) Import(ctx context.Context, rr repo.RecordRepo, t *tabular.Table, opts Options) (*Report, error) {
	if t == nil {
		return nil, fmt.Errorf("resource.Resource.Import: %s: no table: %w", r.name, domain.ErrValidation)
	}

	rep := &Report{RunID: uuid.NewString(), Resource: r.name, Rows: []RowResult{}}
	logger := logging.WithFields(ctx, "resource", r.name, "run_id", rep.RunID)

	cols := make(map[string]int, len(r.fields))
	for _, fd := range r.fields {
		if i := t.Index(fd.Name); i >= 0 {
			cols[fd.Name] = i
		}
	}

	var updates, creates []int
	for i, row := range t.Rows {
		if raw, ok := cellOf(row, cols, r.model.PK); ok && !isNull(raw) {
			updates = append(updates, i)
		} else {
			creates = append(creates, i)
		}
	}

	for _, batch := range [][]int{updates, creates} {
		for _, i := range batch {
			if err := ctx.Err(); err != nil {
				rep.sortRows()
				return rep, fmt.Errorf("resource.Resource.Import: %s: %w", r.name, err)
			}

			res := r.importRow(ctx, rr, t.Rows[i], t.Line(i), cols, opts)
			switch res.Outcome {
			case OutcomeFailed:
				logger.Warn("import row failed", "line", res.Line, "action", res.Action, "error", res.Error)
			case OutcomeSkipped:
				logger.Warn("import row skipped", "line", res.Line, "id", res.ID, "reason", res.Error)
			}
			rep.add(res)
		}
	}
	rep.sortRows()

	logger.Info("import finished",
		"created", rep.Created,
		"updated", rep.Updated,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
	)
	return rep, nil
}

func (r *Resource) importRow(ctx context.Context, rr repo.RecordRepo, row []any, line int, cols map[string]int, opts Options) RowResult {
	res := RowResult{Line: line, Action: ActionCreate}
	fail := func(err error) RowResult {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	var id int64
	if raw, ok := cellOf(row, cols, r.model.PK); ok && !isNull(raw) {
		res.Action = ActionUpdate
		v, err := coerce(raw, schema.TypeInteger, opts)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", r.model.PK, err))
		}
		id = v.(int64)
		res.ID = id
	}

	values := make(map[string]any)
	var deferred []pendingRelation
	for _, fd := range r.fields {
		if fd.Name == r.model.PK {
			continue
		}
		raw, ok := cellOf(row, cols, fd.Name)
		if !ok {
			continue
		}

		switch {
		case fd.Kind.MultiValued():
			if !isNull(raw) {
				deferred = append(deferred, pendingRelation{fd: fd, raw: raw})
			}
		case fd.Kind.SingleValued():
			if isNull(raw) {
				continue
			}
			relID, found, err := resolve(ctx, rr, fd, raw, opts)
			if err != nil {
				return fail(fmt.Errorf("%s: %w", fd.Name, err))
			}
			if !found {
				res.Unmatched = append(res.Unmatched, fd.Name+"="+strings.TrimSpace(raw))
				continue
			}
			values[fd.field.Column] = relID
		default:
			if isNull(raw) {
				// New records fall back to the column default.
				if res.Action == ActionUpdate {
					values[fd.field.Column] = nil
				}
				continue
			}
			v, err := coerce(raw, fd.field.Type, opts)
			if err != nil {
				return fail(fmt.Errorf("%s: %w", fd.Name, err))
			}
			values[fd.field.Column] = v
		}
	}

	if res.Action == ActionUpdate {
		if err := rr.Update(ctx, r.model, id, values); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				res.Outcome = OutcomeSkipped
				res.Error = fmt.Sprintf("no %s with %s %d", r.model.Name, r.model.PK, id)
				return res
			}
			return fail(err)
		}
		res.Outcome = OutcomeUpdated
	} else {
		newID, err := rr.Create(ctx, r.model, values)
		if err != nil {
			return fail(err)
		}
		id = newID
		res.ID = id
		res.Outcome = OutcomeCreated
	}

	for _, p := range deferred {
		unmatched, err := attach(ctx, rr, r.model, p, id, opts)
		res.Unmatched = append(res.Unmatched, unmatched...)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", p.fd.Name, err))
		}
	}
	return res
}

// attach adds every record named in a joined cell to the relation. Members
// already attached stay attached; names that match nothing are returned.
func attach(ctx context.Context, rr repo.RecordRepo, owner *schema.Model, p pendingRelation, ownerID int64, opts Options) ([]string, error) {
	var unmatched []string
	for _, token := range strings.Split(p.raw, MultiValueSeparator) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		relID, found, err := resolve(ctx, rr, p.fd, token, opts)
		if err != nil {
			return unmatched, err
		}
		if !found {
			unmatched = append(unmatched, p.fd.Name+"="+token)
			continue
		}
		if err := rr.AddRelated(ctx, owner, p.fd.field, ownerID, relID); err != nil {
			return unmatched, err
		}
	}
	return unmatched, nil
}

// resolve finds the first related record whose surrogate column equals raw.
// A value that cannot even be read as the surrogate's type matches nothing.
func resolve(ctx context.Context, rr repo.RecordRepo, fd FieldDescriptor, raw string, opts Options) (int64, bool, error) {
	v, err := coerce(strings.TrimSpace(raw), fd.surrogate.Type, opts)
	if err != nil {
		return 0, false, nil
	}
	id, err := rr.LookupID(ctx, fd.related, fd.surrogate.Column, v)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// cellOf returns the text of the named column, false when the table lacks it.
func cellOf(row []any, cols map[string]int, name string) (string, bool) {
	i, ok := cols[name]
	if !ok {
		return "", false
	}
	if i >= len(row) {
		return "", true
	}
	return tabular.Text(row[i]), true
}
