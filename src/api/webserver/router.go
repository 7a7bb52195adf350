package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigboard/gigboard/src/api/config"
	"github.com/gigboard/gigboard/src/gigs/arbitration"
	"github.com/gigboard/gigboard/src/gigs/blob"
	"github.com/gigboard/gigboard/src/gigs/catalog"
	"github.com/gigboard/gigboard/src/gigs/chat"
	"github.com/gigboard/gigboard/src/gigs/identity"
	"github.com/gigboard/gigboard/src/gigs/ledger"
	"github.com/gigboard/gigboard/src/gigs/metrics"
	"github.com/gigboard/gigboard/src/gigs/store"
)

// Deps are the core services the HTTP layer fronts.
type Deps struct {
	Store    *store.Store
	Catalog  *catalog.Catalog
	Ledger   *ledger.Ledger
	Arbiter  *arbitration.Engine
	Chat     *chat.Channel
	Blobs    *blob.Resolver
	Resolver identity.Resolver
	Revoker  Revoker
	Metrics  *metrics.Core
	Gatherer prometheus.Gatherer
}

func New(cfg config.Config, d Deps) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, d)
	return g
}

func attachRoutes(r *gin.Engine, cfg config.Config, d Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
	}))
	if d.Metrics != nil {
		r.Use(requestMetrics(d.Metrics))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	limited := RateLimitMiddleware(limiter)

	authH := NewAuth(d.Resolver, d.Revoker)
	gigH := NewGigs(d.Catalog)
	subH := NewSubmissions(d.Ledger)
	winH := NewWinners(d.Arbiter)
	chatH := NewChat(d.Chat)
	profH := NewProfiles(d.Store, d.Blobs)

	v1 := r.Group("/v1")
	{
		public := v1.Group("", authH.Optional())
		public.GET("/gigs", gigH.List)
		public.GET("/gigs/:id", gigH.Get)
		public.GET("/gigs/:id/winners", winH.List)
		public.GET("/gigs/:id/chat", chatH.List)
		public.GET("/profiles/:username", profH.Get)

		secured := v1.Group("", authH.Required())
		secured.GET("/me", authH.Me)
		secured.POST("/auth/logout", authH.Logout)
		secured.GET("/me/gigs", gigH.Mine)
		secured.POST("/gigs", limited, gigH.Create)
		secured.PUT("/gigs/:id", limited, gigH.Amend)
		secured.POST("/gigs/:id/submissions", limited, subH.Create)
		secured.GET("/gigs/:id/submissions", subH.List)
		secured.GET("/gigs/:id/submissions/mine", subH.Mine)
		secured.POST("/gigs/:id/winners", limited, winH.Declare)
		secured.POST("/gigs/:id/chat", limited, chatH.Post)
		secured.DELETE("/chat/:messageID", chatH.Delete)
	}
}

func requestMetrics(m *metrics.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Request(route, c.Request.Method, strconv.Itoa(c.Writer.Status()))
	}
}
