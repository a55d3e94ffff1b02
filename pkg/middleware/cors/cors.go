package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Options configures the CORS middleware.
type Options struct {
	// AllowedOrigins lists permitted origins; empty allows every origin.
	AllowedOrigins []string
	AllowedHeaders []string
	// ExposedHeaders are readable by browser clients, e.g. Content-Disposition
	// for roster export filenames.
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

var (
	defaultAllowedHeaders = []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"}
	defaultExposedHeaders = []string{"Content-Disposition", "X-Request-ID"}
	allowedMethods        = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

// New returns a CORS middleware. Requests from origins outside the allow
// list get no CORS headers, and credentials are only allowed for an echoed
// origin, never for the "*" wildcard.
func New(opts Options) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		origins[normalizeOrigin(origin)] = struct{}{}
	}
	allowAll := len(origins) == 0

	allowHeaders := strings.Join(orDefault(opts.AllowedHeaders, defaultAllowedHeaders), ", ")
	exposeHeaders := strings.Join(orDefault(opts.ExposedHeaders, defaultExposedHeaders), ", ")
	maxAge := ""
	if opts.MaxAge > 0 {
		maxAge = strconv.Itoa(int(opts.MaxAge / time.Second))
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		allowed := true
		switch {
		case origin == "" && allowAll:
			header.Set("Access-Control-Allow-Origin", "*")
		case origin == "":
		case allowAll, hasOrigin(origins, origin):
			header.Set("Access-Control-Allow-Origin", origin)
			if opts.AllowCredentials {
				header.Set("Access-Control-Allow-Credentials", "true")
			}
		default:
			allowed = false
		}

		if allowed {
			header.Set("Access-Control-Allow-Headers", allowHeaders)
			header.Set("Access-Control-Allow-Methods", allowedMethods)
			if exposeHeaders != "" {
				header.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
			if maxAge != "" {
				header.Set("Access-Control-Max-Age", maxAge)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func hasOrigin(origins map[string]struct{}, origin string) bool {
	_, ok := origins[normalizeOrigin(origin)]
	return ok
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
