package middlewares

import (
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

const stsMaxAge = 365 * 24 * 60 * 60

// SecureHeaders sets the response headers that matter for a JSON API.
// Strict-Transport-Security is only emitted when the server terminates TLS.
func SecureHeaders(tls bool) gin.HandlerFunc {
	cfg := secure.Config{
		ContentTypeNosniff: true,
		FrameDeny:          true,
		ReferrerPolicy:     "no-referrer",
	}
	if tls {
		cfg.STSSeconds = stsMaxAge
		cfg.STSIncludeSubdomains = true
		cfg.SSLProxyHeaders = map[string]string{"X-Forwarded-Proto": "https"}
	}
	return secure.New(cfg)
}
