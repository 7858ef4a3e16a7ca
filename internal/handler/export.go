package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/modelio/internal/logging"
	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/tabular"
)

// ExportParams are the query parameters of GET /resources/{name}/export.
type ExportParams struct {
	// Format is csv (default) or xlsx.
	Format *string
	// ID restricts the export to these identifiers. Absent means every record.
	ID *[]int64
}

// ExportResource handles GET /resources/{name}/export.
// The whole file is built in memory first so an empty or failed export
// answers with a JSON error instead of a truncated download.
func (s *Server) ExportResource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var params ExportParams
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &params.Format); err != nil {
		requestError(w, fmt.Sprintf("invalid format parameter: %v", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "id", r.URL.Query(), &params.ID); err != nil {
		requestError(w, fmt.Sprintf("invalid id parameter: %v", err))
		return
	}

	format, err := formatParam(params.Format, "")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var q repo.Query
	if params.ID != nil {
		q.IDs = *params.ID
	}

	var buf bytes.Buffer
	if err := s.transfer.Export(r.Context(), name, format, &buf, q); err != nil {
		serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+string(format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		// Headers are sent; the client went away mid-download.
		logging.FromContext(r.Context()).Debug("export write failed", "resource", name, "error", err)
	}
}

// formatParam resolves the format query parameter. When it is absent the
// request Content-Type decides, and csv is the fallback.
func formatParam(param *string, contentType string) (tabular.Format, error) {
	if param != nil && *param != "" {
		return tabular.ParseFormat(*param)
	}
	if contentType == tabular.XLSX.ContentType() {
		return tabular.XLSX, nil
	}
	return tabular.CSV, nil
}
