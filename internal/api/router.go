// internal/api/router.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RouterOptions 路由配置
type RouterOptions struct {
	DebugMode bool
	// AssistantRateLimit 每个客户端每分钟可调用助手的次数，<=0 表示不限
	AssistantRateLimit int
}

// SetupRouter 配置HTTP路由
func SetupRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(requestIDMiddleware())
	r.Use(accessLogMiddleware(h.logger, h.metrics))

	// 启用CORS
	r.Use(corsMiddleware())

	r.GET("/health", h.HealthCheck)

	// WebSocket 状态推送
	r.GET("/ws", h.StateWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		api.GET("/state", h.GetState)
		api.GET("/stats", h.GetStats)
		api.PUT("/ui/selection", h.SetSelection)

		// ===============================
		// 实体CRUD
		// ===============================
		registerResource(api, "/projects", h, h.projectResource())
		registerResource(api, "/characters", h, h.characterResource())
		registerResource(api, "/locations", h, h.locationResource())
		registerResource(api, "/items", h, h.itemResource())
		registerResource(api, "/plot-nodes", h, h.plotNodeResource())
		registerResource(api, "/variables", h, h.variableResource())
		registerResource(api, "/issues", h, h.issueResource())

		// ===============================
		// 情节与问题
		// ===============================
		api.PUT("/plot-nodes/:id/manuscript", h.UpdateManuscript)
		api.GET("/plot-nodes/:id/descendants", h.GetPlotDescendants)
		api.POST("/issues/:id/resolve", h.ResolveIssue)
		api.POST("/issues/:id/reopen", h.ReopenIssue)

		// ===============================
		// 项目级操作
		// ===============================
		projectGroup := api.Group("/projects/:id")
		{
			projectGroup.GET("/plot", h.GetPlotChildren)
			projectGroup.GET("/issues/open", h.GetOpenIssues)
			projectGroup.POST("/issues/accept", h.AcceptSuggestedIssue)
			projectGroup.POST("/stats/recompute", h.RecomputeStats)
			projectGroup.GET("/messages", h.GetMessages)
			projectGroup.DELETE("/messages", h.ClearMessages)

			assistant := []gin.HandlerFunc{h.AskAssistant}
			if opts.AssistantRateLimit > 0 {
				limiter := NewRateLimiter(opts.AssistantRateLimit, time.Minute)
				assistant = append([]gin.HandlerFunc{limiter.Middleware(h.Response)}, assistant...)
			}
			projectGroup.POST("/assistant", assistant...)
		}

		// ===============================
		// 助手建议
		// ===============================
		suggested := api.Group("/suggested-variables")
		{
			suggested.GET("", h.GetSuggestedVariables)
			suggested.POST("/:id/accept", h.AcceptSuggestedVariable)
			suggested.DELETE("/:id", h.DismissSuggestedVariable)
		}

		// ===============================
		// 导入导出
		// ===============================
		api.GET("/export", h.ExportData)
		api.POST("/import", h.ImportData)
		api.POST("/reset", h.ResetData)
	}

	return r
}
