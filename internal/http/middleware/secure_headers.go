package middleware

import (
	"net/http"

	"github.com/unrolled/secure"

	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// SecureHeaders sets browser hardening headers on every response and redirects
// plain HTTP to HTTPS in production.
func SecureHeaders(production bool, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(production),
		IsDevelopment:         !production,
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				logger.Warn("secure headers blocked request", "error", err, "path", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}
