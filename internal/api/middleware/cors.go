package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	// AllowOriginPrefixes lists accepted origin prefixes. Extension pages
	// have per-install origins, so exact matching does not work.
	AllowOriginPrefixes []string
	AllowMethods        []string
	AllowHeaders        []string
	AllowCredentials    bool
	MaxAge              time.Duration
}

// DefaultCORSConfig accepts browser extension pages and local tools.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOriginPrefixes: []string{
			"chrome-extension://",
			"moz-extension://",
			"http://localhost",
			"http://127.0.0.1",
		},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
}

// CORS creates a CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  originMatcher(cfg.AllowOriginPrefixes),
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}

func originMatcher(prefixes []string) func(string) bool {
	return func(origin string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(origin, p) {
				return true
			}
		}
		return false
	}
}
