package middleware

import (
	"net/http"
	"strings"

	"github.com/mgastelum/freshmart-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

// SessionID lifts the anonymous cart session header into the request
// context. The header is optional; authenticated requests may omit it.
func SessionID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
