package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmassist-backend/middleware"
)

// RegisterRoutes mounts the health, metrics and assistant endpoints. auth
// must store the caller for middleware.Caller.
func RegisterRoutes(r *gin.Engine, h *AssistantHandler, auth gin.HandlerFunc, metricsHandler http.Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	ai := r.Group("/api/ai", auth)
	{
		ai.POST("/ask", h.Ask)
		ai.POST("/ask-enhanced", middleware.RequirePremium(), h.AskEnhanced)
		ai.POST("/research", h.Research)
		ai.POST("/check-interactions", h.CheckInteractions)
	}

	dashboard := r.Group("/api/dashboard", auth)
	dashboard.POST("/ask", h.DashboardAsk)
}
