package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"bikeservice/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(err error) int {
	switch domain.KindName(err) {
	case "validation", "invalid_schedule":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "forbidden", "account_locked":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "slot_conflict", "duplicate_active_booking", "invalid_transition", "conflict":
		return http.StatusConflict
	case "rate_limited":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	requestID := middleware.GetReqID(r.Context())
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{
		Error:     domain.Message(err),
		Kind:      domain.KindName(err),
		RequestID: requestID,
	})
}

func (s *HTTPServer) badRequest(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	s.writeError(w, r, domain.Errorf(domain.ErrValidation, format, args...))
}

// decodeJSON reads a single JSON object from the body. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return domain.Errorf(domain.ErrValidation, "request body is required")
	}
	if err != nil {
		return domain.Errorf(domain.ErrValidation, "invalid JSON body")
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
