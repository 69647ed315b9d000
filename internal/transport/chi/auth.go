package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/logger"
)

// Probes stay reachable without a key.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware rejects requests whose Bearer token is not one of apiKeys.
// Blank keys are ignored; with no keys left the middleware is a pass-through.
func BearerAuthMiddleware(apiKeys []string, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	var digests [][sha256.Size]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, reason := bearerToken(r.Header.Get("Authorization"))
			if reason == "" && !knownKey(digests, token) {
				reason = "invalid api key"
			}
			if reason != "" {
				logger.FromContextOr(r.Context(), log).Info("Request rejected",
					zap.String("path", r.URL.Path),
					zap.String("reason", reason),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="tradesearch"`)
				writeError(w, r, http.StatusUnauthorized, ErrorCodeUnauthorized, reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential; a non-empty reason explains a malformed header.
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, cred, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "authorization header must use Bearer scheme"
	}
	cred = strings.TrimSpace(cred)
	if cred == "" {
		return "", "empty bearer token"
	}
	return cred, ""
}

// knownKey compares digests in constant time and never stops early.
func knownKey(digests [][sha256.Size]byte, token string) bool {
	d := sha256.Sum256([]byte(token))
	found := 0
	for i := range digests {
		found |= subtle.ConstantTimeCompare(d[:], digests[i][:])
	}
	return found == 1
}
