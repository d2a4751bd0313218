package web

import (
	"net/http"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/mutate"
)

func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.Inventory(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListInventoryLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.service.InventoryLogs(r.Context(), r.URL.Query().Get("itemId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var in mutate.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.service.AddItem(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var in mutate.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.service.EditItem(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.DeleteItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var u mutate.StockUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, entry, err := s.service.UpdateStock(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Item domain.InventoryItem      `json:"item"`
		Log  domain.InventoryUpdateLog `json:"log"`
	}{*item, *entry})
}
