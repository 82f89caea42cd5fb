package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/medrag/internal/middleware"
)

type RouterDeps struct {
	Ask *AskHandler
	// AskRateLimit is the minimum gap between two questions from one
	// client. Zero disables limiting.
	AskRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/ask", middleware.RateLimit(deps.AskRateLimit, deps.Ask.Throttled), deps.Ask.Ask)
	api.GET("/search", deps.Ask.Search)
	api.GET("/stats", deps.Ask.Stats)
}
