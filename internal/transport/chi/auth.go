package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const apiKeyHeader = "X-API-Key"

// APIKeyMiddleware returns a middleware that accepts a configured key either
// as a Bearer token or in the X-API-Key header. If apiKeys holds no
// non-empty key, authentication is disabled.
func APIKeyMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, msg := credential(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			if !validKey(keys, token) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// credential extracts the presented key. msg is set when none is usable.
func credential(r *http.Request) (token, msg string) {
	if k := r.Header.Get(apiKeyHeader); k != "" {
		return k, ""
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing api key"
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", "authorization header must use Bearer scheme"
	}
	return auth[len(bearerPrefix):], ""
}

func validKey(keys [][]byte, token string) bool {
	t := []byte(token)
	ok := 0
	for _, k := range keys {
		ok |= subtle.ConstantTimeCompare(k, t)
	}
	return ok == 1
}
