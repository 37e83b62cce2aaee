package identity

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware authenticates the Authorization header when present.
// Requests without a header pass through anonymously; a header that does
// not validate is rejected with 401.
func Middleware(v *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
				writeUnauthorized(w, "invalid Authorization header format (expected 'Bearer <token>')")
				return
			}

			p, err := v.Validate(strings.TrimSpace(tokenStr))
			if err != nil {
				logger.Debug("rejected bearer token", "error", err, "path", r.URL.Path)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequirePrincipal rejects anonymous requests.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeUnauthorized(w, "missing Authorization header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="event-registry"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
