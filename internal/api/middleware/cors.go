package middleware

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ConfigCORS allows the listed origins. An empty list, or one containing "*",
// allows every origin.
func ConfigCORS(domains []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	origins := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "*" {
			origins = nil
			break
		}
		// cors.New panics on anything that is not an http(s) origin
		if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
			origins = append(origins, d)
		}
	}

	if len(origins) == 0 {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
	} else {
		conf.AllowOrigins = origins
	}

	return cors.New(conf)
}

// CORSPolicy lets the allowed origins be swapped while the server runs.
type CORSPolicy struct {
	current atomic.Value
}

func NewCORSPolicy(domains []string) *CORSPolicy {
	p := &CORSPolicy{}
	p.Update(domains)
	return p
}

func (p *CORSPolicy) Update(domains []string) {
	p.current.Store(ConfigCORS(domains))
}

func (p *CORSPolicy) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		p.current.Load().(gin.HandlerFunc)(ctx)
	}
}
