package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultContentSecurityPolicy lets the booth page load its own assets,
// Google Fonts and inline data: images.
var DefaultContentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"img-src 'self' data: blob:",
	"media-src 'self' data:",
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
	"font-src 'self' https://fonts.gstatic.com",
	"script-src 'self' https://cdn.jsdelivr.net",
	"connect-src 'self'",
}, "; ")

// SecurityHeaders sets the browser hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", DefaultContentSecurityPolicy)
		c.Next()
	}
}
