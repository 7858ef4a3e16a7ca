package handler

import (
	"net/http"

	"github.com/pkordes/modelio/internal/service"
)

// ListResources handles GET /resources.
func (s *Server) ListResources(w http.ResponseWriter, _ *http.Request) {
	infos := s.transfer.Resources()
	if infos == nil {
		infos = []service.ResourceInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}
