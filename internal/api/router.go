package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storepulse/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, limiter *mw.IPRateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(logger))

	api := r.Group("/")
	api.Use(mw.RateLimiter(limiter))
	{
		api.POST("/trigger_report", h.TriggerReport)
		api.GET("/get_report/:report_id", h.GetReport)
		api.GET("/get_report/:report_id/download", h.DownloadReport)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
