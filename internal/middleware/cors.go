package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type, X-Request-Id"
	corsMaxAge  = "600"
)

type originPolicy map[string]struct{}

func newOriginPolicy(allowlist []string) originPolicy {
	p := originPolicy{}
	for _, origin := range allowlist {
		if o := strings.TrimRight(strings.TrimSpace(origin), "/"); o != "" {
			p[o] = struct{}{}
		}
	}
	return p
}

// allow returns the Access-Control-Allow-Origin value for origin. An empty
// policy admits any origin.
func (p originPolicy) allow(origin string) (string, bool) {
	if len(p) == 0 {
		return "*", true
	}
	if origin == "" {
		return "", false
	}
	_, ok := p[origin]
	return origin, ok
}

// CORS lets the browser chat page call the API from another origin.
func CORS(allowlist []string) gin.HandlerFunc {
	policy := newOriginPolicy(allowlist)
	return func(c *gin.Context) {
		if value, ok := policy.allow(c.GetHeader("Origin")); ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", value)
			if value != "*" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", HeaderRequestID)
			h.Set("Access-Control-Max-Age", corsMaxAge)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
