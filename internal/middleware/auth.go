package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"imagestream/internal/logging"
)

// APIKeyQueryParam carries the API key for clients that cannot set headers,
// such as browser websocket connections.
const APIKeyQueryParam = "key"

// KeyStore validates API keys.
type KeyStore interface {
	HasAPIKey(ctx context.Context) bool
	ValidateAPIKey(ctx context.Context, key string) error
}

// AuthConfig holds configuration for the API key middleware
type AuthConfig struct {
	// PublicPaths are served without a key
	PublicPaths []string
}

// DefaultAuthConfig leaves probes and the version endpoint open.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		PublicPaths: []string{"/health", "/healthz", "/livez", "/readyz", "/version"},
	}
}

// RequireAPIKey rejects requests without a valid API key. While no key is
// configured in the store every request is let through.
func RequireAPIKey(store KeyStore, config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path, config) || !store.HasAPIKey(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}

			key := extractAPIKey(r)
			if key == "" {
				writeUnauthorized(w, "missing api key")
				return
			}
			if err := store.ValidateAPIKey(r.Context(), key); err != nil {
				logging.Debug("rejected api key from %s: %v", sanitizeLogField(getClientIP(r)), err)
				writeUnauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isPublicPath(path string, config AuthConfig) bool {
	for _, p := range config.PublicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// extractAPIKey reads a Bearer token, then the X-API-Key header, then the query.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return r.URL.Query().Get(APIKeyQueryParam)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="imagestream"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Error("failed to encode unauthorized response: %v", err)
	}
}
