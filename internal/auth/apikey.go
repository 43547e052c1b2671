package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
)

// AdminKeyMiddleware guards operational endpoints such as model reloads with
// a single shared key. Only the key's hash is kept in memory.
type AdminKeyMiddleware struct {
	headerName string
	keyHash    string
	logger     *slog.Logger
}

func NewAdminKeyMiddleware(headerName, key string) *AdminKeyMiddleware {
	if headerName == "" {
		headerName = "X-Admin-Key"
	}
	m := &AdminKeyMiddleware{
		headerName: headerName,
		logger:     slog.Default().With("component", "admin-auth"),
	}
	if key != "" {
		m.keyHash = HashAPIKey(key)
	}
	return m
}

// Enabled reports whether an admin key is configured. Without one every
// admin request is refused.
func (m *AdminKeyMiddleware) Enabled() bool { return m.keyHash != "" }

func (m *AdminKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			writeError(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}

		key := r.Header.Get(m.headerName)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing admin key")
			return
		}

		if subtle.ConstantTimeCompare([]byte(HashAPIKey(key)), []byte(m.keyHash)) != 1 {
			m.logger.Warn("rejected admin request", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "invalid admin key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
