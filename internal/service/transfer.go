// Package service exposes each configured resource as a file exchange:
// export to CSV or XLSX, import from either. No SQL lives here; services
// depend on the repo interface and the resolved resources, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/logging"
	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/resource"
	"github.com/pkordes/modelio/internal/tabular"
)

// ResourceSet is the lookup the service needs from a catalog.
type ResourceSet interface {
	Resources() []*resource.Resource
	Resource(name string) (*resource.Resource, error)
}

// ResourceInfo describes one resource for listings.
type ResourceInfo struct {
	Name   string                     `json:"name"`
	Model  string                     `json:"model"`
	Fields []resource.FieldDescriptor `json:"fields"`
}

// Transfer runs exports and imports for every resource in a set.
type Transfer struct {
	repo      repo.RecordRepo
	resources ResourceSet
	opts      resource.Options
}

// NewTransfer constructs a Transfer. opts controls how temporal values are
// rendered on export and parsed on import.
func NewTransfer(rr repo.RecordRepo, resources ResourceSet, opts resource.Options) *Transfer {
	return &Transfer{repo: rr, resources: resources, opts: opts}
}

// Resources lists every configured resource in catalog order.
func (s *Transfer) Resources() []ResourceInfo {
	all := s.resources.Resources()
	out := make([]ResourceInfo, 0, len(all))
	for _, r := range all {
		out = append(out, ResourceInfo{Name: r.Name(), Model: r.Model().Name, Fields: r.Fields()})
	}
	return out
}

// Export writes the records selected by q to w.
func (s *Transfer) Export(ctx context.Context, name string, f tabular.Format, w io.Writer, q repo.Query) error {
	table, err := s.table(ctx, name, q)
	if err != nil {
		return fmt.Errorf("service.Transfer.Export: %w", err)
	}
	if err := tabular.Write(w, f, table); err != nil {
		return fmt.Errorf("service.Transfer.Export: %w", err)
	}
	return nil
}

// Import reads a table from r and applies it to the resource. Per-row
// problems are part of the report; the error is reserved for unreadable
// input, unknown resources and cancellation.
func (s *Transfer) Import(ctx context.Context, name string, f tabular.Format, r io.Reader) (*resource.Report, error) {
	res, err := s.resources.Resource(name)
	if err != nil {
		return nil, fmt.Errorf("service.Transfer.Import: %w", err)
	}
	table, err := tabular.Read(r, f)
	if err != nil {
		return nil, fmt.Errorf("service.Transfer.Import: %w: %w", domain.ErrValidation, err)
	}
	rep, err := res.Import(ctx, s.repo, table, s.opts)
	if err != nil {
		return rep, fmt.Errorf("service.Transfer.Import: %w", err)
	}
	return rep, nil
}

// ExportToCSV writes the selected records of a resource to a CSV file.
func (s *Transfer) ExportToCSV(ctx context.Context, name, path string, q repo.Query) error {
	return s.exportFile(ctx, name, tabular.CSV, path, q)
}

// ExportToExcel writes the selected records of a resource to an XLSX file.
func (s *Transfer) ExportToExcel(ctx context.Context, name, path string, q repo.Query) error {
	return s.exportFile(ctx, name, tabular.XLSX, path, q)
}

// ExportFile picks the format from the file extension.
func (s *Transfer) ExportFile(ctx context.Context, name, path string, q repo.Query) error {
	f, err := tabular.FormatFromPath(path)
	if err != nil {
		return fmt.Errorf("service.Transfer.ExportFile: %w: %w", domain.ErrValidation, err)
	}
	return s.exportFile(ctx, name, f, path, q)
}

// ImportFromCSV applies a CSV file to a resource.
func (s *Transfer) ImportFromCSV(ctx context.Context, name, path string) (*resource.Report, error) {
	return s.importFile(ctx, name, tabular.CSV, path)
}

// ImportFromExcel applies an XLSX file to a resource.
func (s *Transfer) ImportFromExcel(ctx context.Context, name, path string) (*resource.Report, error) {
	return s.importFile(ctx, name, tabular.XLSX, path)
}

// ImportFile picks the format from the file extension.
func (s *Transfer) ImportFile(ctx context.Context, name, path string) (*resource.Report, error) {
	f, err := tabular.FormatFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("service.Transfer.ImportFile: %w: %w", domain.ErrValidation, err)
	}
	return s.importFile(ctx, name, f, path)
}

func (s *Transfer) table(ctx context.Context, name string, q repo.Query) (*tabular.Table, error) {
	res, err := s.resources.Resource(name)
	if err != nil {
		return nil, err
	}
	return res.Export(ctx, s.repo, q, s.opts)
}

// exportFile builds the whole table before touching the filesystem, so a
// failed export never leaves a file behind.
func (s *Transfer) exportFile(ctx context.Context, name string, f tabular.Format, path string, q repo.Query) (err error) {
	table, err := s.table(ctx, name, q)
	if err != nil {
		return fmt.Errorf("service.Transfer.exportFile: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("service.Transfer.exportFile: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := tabular.Write(out, f, table); err != nil {
		return fmt.Errorf("service.Transfer.exportFile: %w", err)
	}
	logging.FromContext(ctx).Info("export written",
		"resource", name,
		"path", path,
		"format", string(f),
		"rows", len(table.Rows),
	)
	return nil
}

func (s *Transfer) importFile(ctx context.Context, name string, f tabular.Format, path string) (*resource.Report, error) {
	in, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("service.Transfer.importFile: %w: %w", domain.ErrNotFound, err)
		}
		return nil, fmt.Errorf("service.Transfer.importFile: %w", err)
	}
	defer in.Close()
	return s.Import(ctx, name, f, in)
}
