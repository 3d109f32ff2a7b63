package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shaibs/reqsearch/internal/middleware"
)

type RouterDeps struct {
	Search   *SearchHandler
	Answers  *AnswerHandler
	Requests *RequestHandler
	Admin    *AdminHandler
	// RateLimitWindow throttles the expensive routes per client+path;
	// zero disables throttling.
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/search", deps.Search.Search)
	api.POST("/answer", middleware.RateLimit(deps.RateLimitWindow), deps.Answers.Answer)
	api.GET("/requests/:id", deps.Requests.Get)
	api.POST("/admin/reindex", middleware.RateLimit(deps.RateLimitWindow), deps.Admin.Reindex)
}
