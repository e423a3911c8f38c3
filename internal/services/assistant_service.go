// internal/services/assistant_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
	"github.com/Corphon/StoryPlanner/internal/llm"
	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/Corphon/StoryPlanner/internal/utils"
)

// AssistantClient AI服务的请求/响应接口，网络失败是唯一的错误来源
type AssistantClient interface {
	Ask(ctx context.Context, req models.AssistantRequest) (*models.AssistantResponse, error)
}

// AskInput 一次助手提问
type AskInput struct {
	ProjectID  string               `json:"projectId"`
	Message    string               `json:"message"`
	Mode       models.AssistantMode `json:"mode"`
	PlotNodeID string               `json:"plotNodeId,omitempty"`
	APIKey     string               `json:"apiKey,omitempty"`
}

// AssistantService 把对话记录、上下文构建和建议回填串起来
type AssistantService struct {
	store   *store.Store
	client  AssistantClient
	logger  *utils.Logger
	metrics *utils.MetricsCollector
	now     func() time.Time
}

// NewAssistantService client 为 nil 时所有提问都返回服务不可用
func NewAssistantService(st *store.Store, client AssistantClient, logger *utils.Logger, metrics *utils.MetricsCollector) *AssistantService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &AssistantService{store: st, client: client, logger: logger, metrics: metrics, now: time.Now}
}

// Ask 记录用户消息，调用AI服务并记录回复
// AI服务失败时记录一条 system 消息并把错误返回给调用方
func (s *AssistantService) Ask(ctx context.Context, in AskInput) (*models.AssistantResponse, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, apperrors.NewValidationError("消息不能为空", nil)
	}
	if in.Mode == "" {
		in.Mode = models.ModeGeneric
	}
	if !in.Mode.Valid() {
		return nil, apperrors.NewValidationError("无效的助手模式: "+string(in.Mode), nil)
	}
	if _, ok := s.store.Project(in.ProjectID); !ok {
		return nil, apperrors.NewNotFoundError("项目不存在: "+in.ProjectID, nil)
	}

	plotNodeID := in.PlotNodeID
	if plotNodeID == "" {
		plotNodeID = s.store.Selection().SelectedPlotNodeID
	}
	snapshot := BuildAssistantContext(s.store.State(), in.ProjectID, plotNodeID)

	s.store.AddAiMessage(models.AiMessage{
		ID:        models.NewID(),
		ProjectID: in.ProjectID,
		Role:      models.MessageUser,
		Content:   in.Message,
		Mode:      in.Mode,
		CreatedAt: s.now(),
	})

	if s.client == nil {
		return nil, s.recordFailure(in, apperrors.NewUnavailableError("AI助手未配置", nil))
	}

	s.metrics.IncrementCounter(utils.MetricAssistantCalls)
	resp, err := s.client.Ask(ctx, models.AssistantRequest{
		ProjectID:       in.ProjectID,
		UserMessage:     in.Message,
		Mode:            in.Mode,
		ContextSnapshot: snapshot,
		APIKey:          in.APIKey,
	})
	if err != nil {
		s.metrics.IncrementCounter(utils.MetricAssistantFails)
		return nil, s.recordFailure(in, classifyAssistantError(err))
	}

	s.store.AddAiMessage(models.AiMessage{
		ID:              models.NewID(),
		ProjectID:       in.ProjectID,
		Role:            models.MessageAssistant,
		Content:         resp.Message,
		Mode:            in.Mode,
		CreatedAt:       s.now(),
		ContextSnapshot: &snapshot,
	})

	if len(resp.SuggestedVariables) > 0 {
		resp.SuggestedVariables = s.prepareSuggestions(in.ProjectID, resp.SuggestedVariables)
		s.store.AddSuggestedVariables(resp.SuggestedVariables...)
	}

	s.logger.Info("助手回复已记录", map[string]interface{}{
		"project_id":          in.ProjectID,
		"mode":                in.Mode,
		"suggested_variables": len(resp.SuggestedVariables),
		"suggested_issues":    len(resp.SuggestedIssues),
	})
	return resp, nil
}

func (s *AssistantService) recordFailure(in AskInput, err error) error {
	s.logger.Error("助手请求失败", map[string]interface{}{"project_id": in.ProjectID, "error": err})
	s.store.AddAiMessage(models.AiMessage{
		ID:        models.NewID(),
		ProjectID: in.ProjectID,
		Role:      models.MessageSystem,
		Content:   "AI请求失败: " + err.Error(),
		Mode:      in.Mode,
		CreatedAt: s.now(),
	})
	return err
}

func classifyAssistantError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, llm.ErrMissingAPIKey):
		return apperrors.NewUnauthorizedError("未提供AI服务的API密钥", err)
	default:
		return apperrors.NewUnavailableError("AI服务请求失败", err)
	}
}

// prepareSuggestions 补齐建议变量的 id、项目、状态和时间
func (s *AssistantService) prepareSuggestions(projectID string, vars []models.StoryVariable) []models.StoryVariable {
	now := s.now()
	out := make([]models.StoryVariable, 0, len(vars))
	for _, v := range vars {
		if v.ID == "" {
			v.ID = models.NewID()
		}
		v.ProjectID = projectID
		if v.Type == "" || !v.Type.Valid() {
			v.Type = models.VariableString
		}
		if v.Status == "" || !v.Status.Valid() {
			v.Status = models.VariableTentative
		}
		if v.Label == "" {
			v.Label = v.Key
		}
		v.CreatedAt, v.UpdatedAt = now, now
		out = append(out, v)
	}
	return out
}

// AcceptSuggestedIssue 用户接受一条建议的连贯性问题后写入状态
func (s *AssistantService) AcceptSuggestedIssue(projectID string, si models.SuggestedIssue) (models.ContinuityIssue, error) {
	if _, ok := s.store.Project(projectID); !ok {
		return models.ContinuityIssue{}, apperrors.NewNotFoundError("项目不存在: "+projectID, nil)
	}

	issue := models.ContinuityIssue{
		ID:               models.NewID(),
		ProjectID:        projectID,
		Type:             si.Type,
		Severity:         si.Severity,
		Title:            si.Title,
		Description:      si.Description,
		RelatedEntityIDs: append([]string{}, si.RelatedEntityIDs...),
		CreatedAt:        s.now(),
	}
	if issue.Type == "" {
		issue.Type = "logic"
	}
	if issue.Severity == "" {
		issue.Severity = models.SeverityMinor
	}
	if err := issue.Validate(); err != nil {
		return models.ContinuityIssue{}, err
	}

	s.store.AddContinuityIssue(issue)
	return issue, nil
}

// AcceptSuggestedVariable 把建议变量移入正式变量
func (s *AssistantService) AcceptSuggestedVariable(id string) (models.StoryVariable, error) {
	v, ok := s.store.AcceptSuggestedVariable(id)
	if !ok {
		return models.StoryVariable{}, apperrors.NewNotFoundError("建议变量不存在: "+id, nil)
	}
	return v, nil
}
