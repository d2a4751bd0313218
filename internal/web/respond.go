package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/remote"
	"github.com/vbonduro/washpos/internal/syncer"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("request body is required")
		}
		return domain.Invalid(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// writeError maps err to a status code and a message safe to show at the
// counter. Unexpected errors are logged and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func classify(err error) (int, string) {
	var (
		ve *domain.ValidationError
		se *remote.StatusError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "Data changed in another window, please retry"
	case errors.Is(err, syncer.ErrInProgress):
		return http.StatusConflict, "A sync is already running"
	case errors.Is(err, domain.ErrOffline):
		return http.StatusServiceUnavailable, "You are offline"
	case errors.Is(err, remote.ErrUnreachable):
		return http.StatusServiceUnavailable, "Server is unreachable"
	case errors.As(err, &se):
		msg := se.Message
		if msg == "" {
			msg = http.StatusText(se.Code)
		}
		if se.Code == http.StatusUnauthorized {
			return http.StatusUnauthorized, msg
		}
		return http.StatusBadGateway, msg
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
