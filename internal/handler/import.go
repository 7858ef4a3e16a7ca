package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ImportResource handles POST /resources/{name}/import.
// The request body is the raw file. The response is the import report; rows
// that failed are listed in it and do not change the status code.
func (s *Server) ImportResource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var formatName *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &formatName); err != nil {
		requestError(w, fmt.Sprintf("invalid format parameter: %v", err))
		return
	}
	format, err := formatParam(formatName, r.Header.Get("Content-Type"))
	if err != nil {
		requestError(w, err.Error())
		return
	}

	rep, err := s.transfer.Import(r.Context(), name, format, r.Body)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
