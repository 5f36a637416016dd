package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods  = "GET, HEAD, POST, PUT, PATCH, DELETE, OPTIONS"
	exposeHeaders = "Content-Disposition, Content-Location, X-Cache, X-Request-ID"
)

// New returns a CORS middleware for the browser client. An empty list allows
// any origin without credentials. Entries may use a leading "*." wildcard for
// preview deployments, e.g. "https://*.studyhub.app".
func New(allowedOrigins []string) gin.HandlerFunc {
	policy := newPolicy(allowedOrigins)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		switch {
		case policy.allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && policy.allows(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Expose-Headers", exposeHeaders)
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type policy struct {
	allowAll bool
	exact    map[string]struct{}
	suffixes []suffixRule
}

type suffixRule struct {
	scheme string
	suffix string
}

func newPolicy(origins []string) policy {
	p := policy{exact: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			p.allowAll = true
		case strings.Contains(origin, "://*."):
			scheme, host, _ := strings.Cut(origin, "://*")
			p.suffixes = append(p.suffixes, suffixRule{scheme: scheme + "://", suffix: host})
		default:
			p.exact[origin] = struct{}{}
		}
	}
	if len(p.exact) == 0 && len(p.suffixes) == 0 {
		p.allowAll = true
	}
	return p
}

func (p policy) allows(origin string) bool {
	origin = strings.TrimRight(origin, "/")
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, rule := range p.suffixes {
		if !strings.HasPrefix(origin, rule.scheme) {
			continue
		}
		host := strings.TrimPrefix(origin, rule.scheme)
		if strings.HasSuffix(host, rule.suffix) && len(host) > len(rule.suffix) {
			return true
		}
	}
	return false
}
