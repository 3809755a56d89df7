// Package api provides HTTP handlers for the decision wizard API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/ashureev/tententen/internal/wizard"
)

const maxRequestBodySize = 64 << 10

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// StatusFor maps a controller error to an HTTP status code.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity
	}

	var gerr *domain.GenerationError
	if errors.As(err, &gerr) {
		if errors.Is(err, wizard.ErrRateLimited) {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
