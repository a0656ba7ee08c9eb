package main

import (
	"net/http"

	"voicedesk/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, feed *httpapi.EventFeed) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	// public
	r.GET("/healthz", h.Healthz)

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by Twilio signature validation in production.
	r.POST("/webhooks/twilio/status", h.StatusWebhook)
	r.POST("/webhooks/twilio/voice", h.VoiceWebhook)

	v1 := r.Group("/v1")
	{
		callsGroup := v1.Group("/calls")
		{
			callsGroup.POST("", h.StartCall)
			callsGroup.GET("", h.ListCalls)
			callsGroup.GET("/summary", h.CallsSummary)
			callsGroup.GET("/active", h.ActiveCall)
			callsGroup.DELETE("/active", h.EndCall)
			callsGroup.POST("/active/answer", h.AnswerCall)
			callsGroup.POST("/active/reject", h.RejectCall)
		}

		messagesGroup := v1.Group("/messages")
		{
			messagesGroup.POST("", h.SendMessage)
			messagesGroup.GET("", h.ListMessages)
			messagesGroup.GET("/summary", h.MessagesSummary)
		}

		v1.GET("/token", h.Token)
		v1.POST("/token", h.Token)
		v1.GET("/capability", h.Capability)
		v1.GET("/events", feed.Handle)
	}
}
