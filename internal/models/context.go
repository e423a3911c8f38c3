// internal/models/context.go
package models

// AssistantMode 助手的工作模式
type AssistantMode string

const (
	ModeBrainstorm AssistantMode = "brainstorm"
	ModeContinuity AssistantMode = "continuity"
	ModeCharacter  AssistantMode = "character"
	ModeScene      AssistantMode = "scene"
	ModeGeneric    AssistantMode = "generic"
)

func (m AssistantMode) Valid() bool {
	switch m {
	case ModeBrainstorm, ModeContinuity, ModeCharacter, ModeScene, ModeGeneric:
		return true
	}
	return false
}

// CharacterSummary 发送给助手的角色摘要
type CharacterSummary struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Role   CharacterRole `json:"role"`
	Traits []string      `json:"traits,omitempty"`
}

// AssistantContext 根据当前状态构建的可序列化上下文快照
type AssistantContext struct {
	ProjectSummary         string             `json:"projectSummary"`
	KeyCharacters          []CharacterSummary `json:"keyCharacters"`
	CurrentPlotNodeSummary string             `json:"currentPlotNodeSummary,omitempty"`
	NamedVariables         map[string]any     `json:"namedVariables"`
}

// AssistantRequest 发往AI服务的请求
type AssistantRequest struct {
	ProjectID       string           `json:"projectId"`
	UserMessage     string           `json:"userMessage"`
	Mode            AssistantMode    `json:"mode"`
	ContextSnapshot AssistantContext `json:"contextSnapshot"`
	APIKey          string           `json:"-"`
}

// SuggestedIssue 助手建议的连贯性问题，用户接受后才写入
type SuggestedIssue struct {
	Type             string        `json:"type"`
	Severity         IssueSeverity `json:"severity"`
	Title            string        `json:"title,omitempty"`
	Description      string        `json:"description"`
	RelatedEntityIDs []string      `json:"relatedEntityIds,omitempty"`
}

// AssistantResponse AI服务的响应
type AssistantResponse struct {
	Message            string          `json:"message"`
	SuggestedVariables []StoryVariable `json:"suggestedVariables,omitempty"`
	SuggestedIssues    []SuggestedIssue `json:"suggestedIssues,omitempty"`
	SuggestedNextSteps []string        `json:"suggestedNextSteps,omitempty"`
}
