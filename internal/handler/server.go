// Package handler implements the HTTP handlers for the modelio API.
// All handlers are methods on Server. Methods are split into files per
// endpoint group (health.go, resources.go, export.go, import.go) but share
// the same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/resource"
	"github.com/pkordes/modelio/internal/service"
	"github.com/pkordes/modelio/internal/tabular"
)

// Transferer defines the operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type Transferer interface {
	Resources() []service.ResourceInfo
	Export(ctx context.Context, name string, f tabular.Format, w io.Writer, q repo.Query) error
	Import(ctx context.Context, name string, f tabular.Format, r io.Reader) (*resource.Report, error)
}

// Server serves every API endpoint.
type Server struct {
	transfer Transferer
	document []byte
}

// NewServer constructs the Server. document is the OpenAPI description
// served at /openapi.yaml.
func NewServer(transfer Transferer, document []byte) *Server {
	return &Server{transfer: transfer, document: document}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/resources", s.ListResources)
	r.Get("/resources/{name}/export", s.ExportResource)
	r.Post("/resources/{name}/import", s.ImportResource)
}

// Handler returns a router with every endpoint registered and no middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}
