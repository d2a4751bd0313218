package web

import (
	"net/http"

	"github.com/vbonduro/washpos/internal/mutate"
)

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.service.Sales(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) handleAddSale(w http.ResponseWriter, r *http.Request) {
	var in mutate.SaleInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.service.AddSale(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleEditSale(w http.ResponseWriter, r *http.Request) {
	var in mutate.SaleInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.service.EditSale(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
