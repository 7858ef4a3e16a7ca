package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/tabular"
)

// MultiValueSeparator joins the surrogate values of multi-valued relations.
// Values that themselves contain it cannot be told apart on import.
const MultiValueSeparator = ","

// projectionAlias is the name a single-valued relation is read under before
// it is renamed back to the field name.
func projectionAlias(fd FieldDescriptor) string {
	if fd.Kind.SingleValued() {
		return fd.Name + "__" + fd.Surrogate
	}
	return fd.Name
}

// Export reads the records selected by q and flattens them into a table, one
// row per record ordered by identifier. It fails with ErrNoRecords when q
// selects nothing.
func (r *Resource) Export(ctx context.Context, rr repo.RecordRepo, q repo.Query, opts Options) (*tabular.Table, error) {
	var proj []repo.Projection
	for _, fd := range r.fields {
		switch {
		case fd.Name == r.model.PK || fd.Kind.MultiValued():
			// identifier comes back with every record; collections are read per record
		case fd.Kind.SingleValued():
			via := fd.field
			proj = append(proj, repo.Projection{Alias: projectionAlias(fd), Column: fd.surrogate.Column, Via: &via})
		default:
			proj = append(proj, repo.Projection{Alias: fd.Name, Column: fd.field.Column})
		}
	}

	recs, err := rr.Select(ctx, r.model, proj, q)
	if err != nil {
		return nil, fmt.Errorf("resource.Resource.Export: %s: %w", r.name, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("resource.Resource.Export: %s: %w", r.name, ErrNoRecords)
	}

	t := &tabular.Table{Columns: r.Columns(), Rows: make([][]any, 0, len(recs))}
	for _, rec := range recs {
		row := make([]any, len(r.fields))
		for i, fd := range r.fields {
			v, err := r.exportCell(ctx, rr, rec, fd, opts)
			if err != nil {
				return nil, fmt.Errorf("resource.Resource.Export: %s %d: %s: %w", r.name, rec.ID, fd.Name, err)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (r *Resource) exportCell(ctx context.Context, rr repo.RecordRepo, rec repo.Record, fd FieldDescriptor, opts Options) (any, error) {
	switch {
	case fd.Name == r.model.PK:
		return rec.ID, nil
	case fd.Kind.SingleValued():
		return rec.Values[projectionAlias(fd)], nil
	case fd.Kind.MultiValued():
		vals, err := rr.RelatedValues(ctx, r.model, fd.field, rec.ID, fd.surrogate.Column)
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = tabular.Text(v)
		}
		return strings.Join(parts, MultiValueSeparator), nil
	default:
		return displayValue(rec.Values[fd.Name], fd.field.Type, opts)
	}
}
