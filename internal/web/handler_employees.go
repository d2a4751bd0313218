package web

import (
	"context"
	"net/http"

	"github.com/vbonduro/washpos/internal/service"
)

type credentialsKey struct{}

type employeeRequest struct {
	Name string `json:"name"`
}

// requireAdmin reads HTTP basic auth credentials. They are checked by the
// remote server when the action runs, not here.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="washpos admin"`)
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "admin credentials required"})
			return
		}
		ctx := context.WithValue(r.Context(), credentialsKey{}, service.Credentials{Username: user, Password: pass})
		next(w, r.WithContext(ctx))
	}
}

func credentialsFrom(r *http.Request) service.Credentials {
	creds, _ := r.Context().Value(credentialsKey{}).(service.Credentials)
	return creds
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.Employees(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	names, err := s.service.CreateEmployee(r.Context(), credentialsFrom(r), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, names)
}

func (s *Server) handleRenameEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	names, err := s.service.RenameEmployee(r.Context(), credentialsFrom(r), r.PathValue("name"), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.DeleteEmployee(r.Context(), credentialsFrom(r), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}
