package web

import (
	"net/http"

	"github.com/vbonduro/washpos/internal/domain"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.Status(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online *bool `json:"online"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Online == nil {
		s.writeError(w, r, domain.Invalid("online is required"))
		return
	}
	s.service.SetOnline(*req.Online)
	writeJSON(w, http.StatusOK, map[string]bool{"online": s.service.Online()})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Sync(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
