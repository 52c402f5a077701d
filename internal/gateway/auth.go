package gateway

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/lookfor-ai/maestro/internal/config"
)

// ResolvedAuth holds the resolved token for the management surface and
// the trace feed. An empty token leaves those endpoints open, which is
// only sensible on a loopback bind.
type ResolvedAuth struct {
	Token string
}

// ResolveAuth resolves the management token from config and environment.
// Precedence: config value, then MAESTRO_GATEWAY_TOKEN, then empty.
func ResolveAuth(cfg config.GatewayAuth) ResolvedAuth {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("MAESTRO_GATEWAY_TOKEN")
	}
	return ResolvedAuth{Token: token}
}

// Authorize checks a presented token against the resolved one.
func (a ResolvedAuth) Authorize(presented string) bool {
	if a.Token == "" {
		return true
	}
	return safeEqual(presented, a.Token)
}

// requireToken guards a handler with bearer-token auth. The token is
// taken from the Authorization header, or from the "token" query
// parameter for WebSocket clients that cannot set headers.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presented := bearerToken(r)
		if presented == "" {
			presented = r.URL.Query().Get("token")
		}
		if !s.auth.Authorize(presented) {
			s.log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("unauthorized request")
			writeError(w, http.StatusUnauthorized, "unauthorized", "valid bearer token required")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// It avoids early-return on length mismatch to prevent leaking secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
