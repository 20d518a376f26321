package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/lvonguyen/cyberguard/internal/model"
)

const maxRequestBody = 10 << 20

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError maps err onto a status code. fallback is the message used for
// unexpected errors.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verrs model.ValidationErrors
	var verr *model.ValidationError

	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Validation failed", Errors: verrs})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Validation failed", Errors: []*model.ValidationError{verr}})
	case errors.Is(err, model.ErrAlreadyResolved):
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Alert is already resolved"})
	case errors.Is(err, model.ErrDomainExists):
		writeJSON(w, http.StatusConflict, envelope{Message: "Domain already exists in suspicious domains list"})
	case errors.Is(err, model.ErrDomainNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Message: "Domain not found"})
	case errors.Is(err, model.ErrAlertNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Message: "Alert not found"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Message: "Not found"})
	case errors.Is(err, model.ErrForbidden):
		writeJSON(w, http.StatusForbidden, envelope{Message: err.Error()})
	case errors.Is(err, model.ErrConflict):
		writeJSON(w, http.StatusConflict, envelope{Message: err.Error()})
	default:
		s.logger.Error(fallback,
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, envelope{Message: fallback})
	}
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewValidationError("body", "request body is required")
		}
		return model.NewValidationError("body", "invalid JSON: %v", err)
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, model.NewValidationError(name, "%s must be an integer", name)
	}
	return n, nil
}
