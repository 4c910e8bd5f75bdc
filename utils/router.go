package utils

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

func corsMiddleware(policy string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed := ResolveAllowedOrigin(policy, r.Header.Get("Origin")); allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				if allowed != "*" {
					w.Header().Set("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter constructs the base mux router. Paths are matched in their
// encoded form and never cleaned so /proxy/{encodedUrl} receives the target
// exactly as the player sent it.
func NewRouter(corsPolicy string) *mux.Router {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.SkipClean(true)

	r.Use(corsMiddleware(corsPolicy))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
	return r
}
