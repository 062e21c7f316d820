package restapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter builds the gin engine serving the session handler, the
// Prometheus registry and a health probe.
func SetupRouter(h *SessionHandler, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))
	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/network", h.GetNetwork)
		v1.GET("/snapshot", h.GetSnapshot)
		v1.POST("/sync", h.PostSync)
		v1.GET("/hidden-slots", h.GetHiddenSlots)
		v1.GET("/hidden-slots/fees", h.GetTierFees)
		v1.POST("/hidden-slots", h.PostHiddenSlot)
		v1.POST("/approvals/entry", h.PostApproveEntry)
		v1.POST("/approvals/hidden-slot", h.PostApproveHiddenSlot)
		v1.POST("/join", h.PostJoin)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	return router
}

// ZapLoggerMiddleware logs one line per request.
func ZapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
