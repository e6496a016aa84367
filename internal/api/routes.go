package api

import (
	"io/fs"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"propvalue/server/internal/metrics"
)

type RouterOptions struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	// Dashboard holds index.html. Nil disables the / route.
	Dashboard fs.FS
}

// SetupRoutes registers the JSON API both at the root and under /api.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	register := func(g *gin.RouterGroup) {
		g.GET("/properties", handler.GetAllProperties)
		g.GET("/properties/:id", handler.GetProperty)
		g.POST("/properties", handler.CreateProperty)
		g.PUT("/properties/:id", handler.UpdateProperty)
		g.DELETE("/properties/:id", handler.DeleteProperty)

		g.POST("/analysis/:id", handler.AnalyzeProperty)
		g.GET("/analysis/comparative", handler.GetComparative)

		g.GET("/health", handler.Health)
	}

	register(&router.RouterGroup)
	register(router.Group("/api"))
}

// NewRouter builds the engine with middleware, API routes, metrics and the
// dashboard.
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(handler.logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	SetupRoutes(router, handler)

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	if opts.Dashboard != nil {
		router.GET("/", func(c *gin.Context) {
			content, err := fs.ReadFile(opts.Dashboard, "index.html")
			if err != nil {
				handler.logger.WithError(err).Error("Failed to load dashboard")
				c.String(http.StatusInternalServerError, "Failed to load dashboard")
				return
			}
			c.Data(http.StatusOK, "text/html; charset=utf-8", content)
		})
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
