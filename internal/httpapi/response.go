package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/review"
)

// envelope is the response shape of every endpoint
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data"`
	Reason  string            `json:"reason,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type contextKey int

const userKey contextKey = iota

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(body)
}

func ok(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Message: message})
}

// writeError maps service errors onto status codes
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *review.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid input", Errors: verr.Fields})
	case errors.Is(err, review.ErrForbidden):
		fail(w, http.StatusForbidden, "forbidden")
	case review.IsNotFound(err):
		fail(w, http.StatusNotFound, "not found")
	case errors.Is(err, review.ErrAlreadyReviewed):
		fail(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		fail(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// userFrom reads the identity headers
func userFrom(r *http.Request) review.User {
	return review.User{
		ID:    strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Admin: strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderUserRole)), "admin"),
	}
}

// requireUser rejects anonymous calls with 401
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userFrom(r).ID == "" {
			fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}
