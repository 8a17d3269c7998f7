package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type ctxKeyIdentity struct{}

// Identity extracts the caller identity set by the upstream auth proxy.
// Verification happened upstream; this core only requires that some
// identity is present. The X-User fallback exists for local development
// without a proxy.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-Forwarded-User")
		if user == "" {
			user = r.Header.Get("X-User")
		}
		if user == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyIdentity{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentity returns the verified caller identity for the request.
func GetIdentity(r *http.Request) string {
	if id, ok := r.Context().Value(ctxKeyIdentity{}).(string); ok {
		return id
	}
	return ""
}
