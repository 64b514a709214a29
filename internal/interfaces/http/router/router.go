package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/middleware"
)

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Sale       *handler.SaleHandler
	Adjustment *handler.AdjustmentHandler
	Transfer   *handler.TransferHandler
	Report     *handler.ReportHandler
}

// New assembles the gin engine with logging, recovery and request IDs.
// Client IPs are resolved only through the configured proxies; an empty
// list means no proxy is trusted and the peer address is used as-is.
func New(log *zap.Logger, trustedProxies []string, h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if err := engine.SetTrustedProxies(trustedProxies); err != nil {
		log.Warn("invalid trusted proxy list, client IPs fall back to peer addresses",
			zap.Strings("trusted_proxies", trustedProxies),
			zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.RequestLogger(log))
	engine.Use(logger.Recovery(log))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/transactions", h.Sale.Create)
		v1.DELETE("/transactions/:id", h.Sale.Delete)
		v1.POST("/repayments", h.Sale.Repay)

		v1.POST("/adjustments", h.Adjustment.Apply)
		v1.POST("/transfers", h.Transfer.Transfer)

		v1.POST("/reports/cashier", h.Report.Aggregate)
		v1.GET("/reports/cashier", h.Report.Get)
	}

	return engine
}
