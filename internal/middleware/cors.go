// Package middleware provides HTTP middleware for the wizard API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS returns middleware that handles CORS headers.
// Credentials are only allowed for explicit origins, never for a wildcard.
func CORS(allowedOrigins []string, sessionHeader string) func(http.Handler) http.Handler {
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			break
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", sessionHeader},
		AllowCredentials: !wildcard,
	})
	return c.Handler
}
