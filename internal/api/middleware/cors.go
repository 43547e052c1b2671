package middleware

import (
	"net/http"
	"strings"
)

// CORS allows the listed origins; "*" allows any. adminHeader is added to
// the allowed request headers so browser consoles can call the admin routes.
func CORS(allowedOrigins []string, adminHeader string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[strings.TrimRight(o, "/")] = true
	}
	allowAll := originsSet["*"]

	allowHeaders := "Accept, Authorization, Content-Type"
	if adminHeader != "" {
		allowHeaders += ", " + adminHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || originsSet[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
