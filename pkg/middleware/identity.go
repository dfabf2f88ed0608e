package middleware

import (
	"net/http"
	"suroloyo/pkg/auth"
	"suroloyo/pkg/logger"
)

// Identity parses the trusted identity-provider headers once per request and
// stores the result in the request context. Handlers read it from there and
// pass it to services as an explicit parameter. Requests without identity
// headers pass through untouched; public reads need none, and every protected
// handler rejects a context with no identity itself.
func Identity(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(auth.HeaderUserID) == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := auth.FromRequest(r)
			if err != nil {
				log.Warn("Request rejected: invalid identity headers",
					"request_id", requestIDFrom(r.Context()),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Missing or invalid identity"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}
