// internal/api/handlers.go
package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/services"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/Corphon/StoryPlanner/internal/utils"
	"github.com/gin-gonic/gin"
)

// Handler 处理API请求
type Handler struct {
	Store     *store.Store               // 权威状态
	Export    *services.ExportService    // 导入导出与重置
	Assistant *services.AssistantService // AI助手
	Hub       *Hub                       // 状态推送
	Response  *ResponseHelper            // 响应助手

	logger  *utils.Logger
	metrics *utils.MetricsCollector
	now     func() time.Time
}

// NewHandler 创建API处理器
func NewHandler(st *store.Store, export *services.ExportService, assistant *services.AssistantService, logger *utils.Logger, metrics *utils.MetricsCollector) *Handler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Handler{
		Store:     st,
		Export:    export,
		Assistant: assistant,
		Hub:       NewHub(st, logger, metrics),
		Response:  NewResponseHelper(),
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Close 断开所有推送连接并取消订阅
func (h *Handler) Close() {
	h.Hub.Close()
}

// ManuscriptRequest 更新稿件正文
type ManuscriptRequest struct {
	Content string `json:"content"`
}

// AssistantRequest 向助手提问，projectId 取自路径
type AssistantRequest struct {
	Message    string               `json:"message" binding:"required"`
	Mode       models.AssistantMode `json:"mode"`
	PlotNodeID string               `json:"plotNodeId,omitempty"`
	APIKey     string               `json:"apiKey,omitempty"`
}

// ========================================
// 状态与统计
// ========================================

// GetState 返回完整快照
func (h *Handler) GetState(c *gin.Context) {
	h.Response.Success(c, h.Store.State())
}

// GetStats 返回集合计数与运行指标
func (h *Handler) GetStats(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"collections": h.Store.Stats(),
		"metrics":     h.metrics.GetMetrics(),
		"wsClients":   h.Hub.ClientCount(),
	})
}

// HealthCheck 存活检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"projects":  h.Store.ProjectCount(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// SetSelection 整体替换界面选择状态
func (h *Handler) SetSelection(c *gin.Context) {
	var ui models.UIState
	if err := c.ShouldBindJSON(&ui); err != nil {
		h.Response.BadRequest(c, "请求体格式错误", err.Error())
		return
	}
	h.Store.SetSelection(ui)
	h.Response.Success(c, h.Store.Selection())
}

// ========================================
// 情节与连贯性问题
// ========================================

// UpdateManuscript 更新正文并重新计算字数
func (h *Handler) UpdateManuscript(c *gin.Context) {
	var req ManuscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求体格式错误", err.Error())
		return
	}

	node, ok := h.Store.UpdateManuscript(c.Param("id"), req.Content)
	if !ok {
		h.Response.NotFound(c, "情节节点", c.Param("id"))
		return
	}
	h.Response.Success(c, node, "稿件已保存")
}

// GetPlotDescendants 返回节点的全部后代（先序）
func (h *Handler) GetPlotDescendants(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Store.PlotNode(id); !ok {
		h.Response.NotFound(c, "情节节点", id)
		return
	}
	h.Response.Success(c, h.Store.PlotDescendants(id))
}

// GetPlotChildren 返回某个父节点下按顺序排列的子节点，parentId 为空时返回根节点
func (h *Handler) GetPlotChildren(c *gin.Context) {
	projectID := c.Param("id")
	if _, ok := h.Store.Project(projectID); !ok {
		h.Response.NotFound(c, "项目", projectID)
		return
	}
	h.Response.Success(c, h.Store.PlotChildren(projectID, c.Query("parentId")))
}

// ResolveIssue 标记问题已解决
func (h *Handler) ResolveIssue(c *gin.Context) {
	issue, ok := h.Store.ResolveContinuityIssue(c.Param("id"))
	if !ok {
		h.Response.NotFound(c, "连贯性问题", c.Param("id"))
		return
	}
	h.Response.Success(c, issue)
}

// ReopenIssue 重新打开问题
func (h *Handler) ReopenIssue(c *gin.Context) {
	issue, ok := h.Store.ReopenContinuityIssue(c.Param("id"))
	if !ok {
		h.Response.NotFound(c, "连贯性问题", c.Param("id"))
		return
	}
	h.Response.Success(c, issue)
}

// GetOpenIssues 返回项目中未解决的问题
func (h *Handler) GetOpenIssues(c *gin.Context) {
	h.Response.Success(c, h.Store.IssuesByProject(c.Param("id"), false))
}

// ========================================
// 项目级操作
// ========================================

// RecomputeStats 重新计算项目统计
func (h *Handler) RecomputeStats(c *gin.Context) {
	stats, ok := h.Store.RecomputeProjectStats(c.Param("id"))
	if !ok {
		h.Response.NotFound(c, "项目", c.Param("id"))
		return
	}
	h.Response.Success(c, stats)
}

// GetMessages 返回项目的AI对话记录
func (h *Handler) GetMessages(c *gin.Context) {
	projectID := c.Param("id")
	if _, ok := h.Store.Project(projectID); !ok {
		h.Response.NotFound(c, "项目", projectID)
		return
	}
	h.Response.Success(c, h.Store.AiMessagesByProject(projectID))
}

// ClearMessages 清空项目的AI对话记录
func (h *Handler) ClearMessages(c *gin.Context) {
	projectID := c.Param("id")
	if _, ok := h.Store.Project(projectID); !ok {
		h.Response.NotFound(c, "项目", projectID)
		return
	}
	removed := h.Store.ClearAiMessages(projectID)
	h.Response.Success(c, gin.H{"removed": removed}, "对话记录已清空")
}

// AskAssistant 向AI助手提问
func (h *Handler) AskAssistant(c *gin.Context) {
	var req AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求体格式错误", err.Error())
		return
	}

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.GetHeader("X-API-Key")
	}

	resp, err := h.Assistant.Ask(c.Request.Context(), services.AskInput{
		ProjectID:  c.Param("id"),
		Message:    req.Message,
		Mode:       req.Mode,
		PlotNodeID: req.PlotNodeID,
		APIKey:     apiKey,
	})
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, resp)
}

// AcceptSuggestedIssue 接受一条助手建议的连贯性问题
func (h *Handler) AcceptSuggestedIssue(c *gin.Context) {
	var si models.SuggestedIssue
	if err := c.ShouldBindJSON(&si); err != nil {
		h.Response.BadRequest(c, "请求体格式错误", err.Error())
		return
	}
	issue, err := h.Assistant.AcceptSuggestedIssue(c.Param("id"), si)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, issue)
}

// GetSuggestedVariables 返回待确认的建议变量
func (h *Handler) GetSuggestedVariables(c *gin.Context) {
	h.Response.Success(c, h.Store.SuggestedVariablesByProject(c.Query("projectId")))
}

// AcceptSuggestedVariable 把建议变量转为正式变量
func (h *Handler) AcceptSuggestedVariable(c *gin.Context) {
	v, err := h.Assistant.AcceptSuggestedVariable(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, v)
}

// DismissSuggestedVariable 丢弃建议变量
func (h *Handler) DismissSuggestedVariable(c *gin.Context) {
	if !h.Store.DismissSuggestedVariable(c.Param("id")) {
		h.Response.NotFound(c, "建议变量", c.Param("id"))
		return
	}
	h.Response.Success(c, gin.H{"id": c.Param("id")}, "建议已忽略")
}

// ========================================
// 导入导出
// ========================================

// ExportData 以附件形式下载导出文件
func (h *Handler) ExportData(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Export.Export(&buf); err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorExportFailed, "导出失败", err.Error())
		return
	}
	filename := "story-planner-export-" + h.now().Format("2006-01-02") + ".json"
	h.Response.Attachment(c, filename, buf.Bytes())
}

// ImportData 导入导出文件，mode 为 merge（默认）或 replace
func (h *Handler) ImportData(c *gin.Context) {
	mode := models.ImportMode(c.DefaultQuery("mode", string(models.ImportMerge)))
	result := h.Export.Import(c.Request.Body, mode)
	if !result.Success {
		h.Response.Error(c, http.StatusBadRequest, ErrorImportFailed, result.Message)
		return
	}
	h.Response.Success(c, result, result.Message)
}

// ResetData 清除全部数据
func (h *Handler) ResetData(c *gin.Context) {
	if err := h.Export.ResetAll(); err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorResetFailed, "重置失败", err.Error())
		return
	}
	h.Response.Success(c, h.Store.Stats(), "数据已重置")
}

// StateWebSocket 升级为WebSocket连接并推送状态变更
func (h *Handler) StateWebSocket(c *gin.Context) {
	if err := h.Hub.Serve(c.Writer, c.Request); err != nil {
		h.logger.Warn("WebSocket升级失败", map[string]interface{}{"error": err})
	}
}
