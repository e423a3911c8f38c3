// internal/services/llm_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Corphon/StoryPlanner/internal/llm"
	"github.com/Corphon/StoryPlanner/internal/models"
)

var modePrompts = map[models.AssistantMode]string{
	models.ModeBrainstorm: "You are a creative writing partner. Offer fresh, concrete ideas that fit the project's genre and themes.",
	models.ModeContinuity: "You are a continuity editor. Look for contradictions between the user's question and the established facts, and report them as suggested issues.",
	models.ModeCharacter:  "You are a character development coach. Deepen motivations, relationships and arcs of the characters in context.",
	models.ModeScene:      "You are a scene doctor. Help structure the current scene: goal, conflict, turn and outcome.",
	models.ModeGeneric:    "You are a helpful story-planning assistant.",
}

const responseFormat = `Reply with a single JSON object and nothing else:
{"message": string,
 "suggestedVariables": [{"key": string, "label": string, "type": "string|number|boolean|enum|rule", "value": any, "description": string}],
 "suggestedIssues": [{"type": string, "severity": "minor|moderate|major", "title": string, "description": string, "relatedEntityIds": [string]}],
 "suggestedNextSteps": [string]}
Omit empty lists.`

// LLMAssistantClient 基于 llm.Provider 实现 AssistantClient
type LLMAssistantClient struct {
	provider  llm.Provider
	model     string
	maxTokens int
}

func NewLLMAssistantClient(provider llm.Provider, model string) *LLMAssistantClient {
	return &LLMAssistantClient{provider: provider, model: model, maxTokens: 2048}
}

func (c *LLMAssistantClient) Ask(ctx context.Context, req models.AssistantRequest) (*models.AssistantResponse, error) {
	contextJSON, err := json.MarshalIndent(req.ContextSnapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化上下文失败: %w", err)
	}

	system, ok := modePrompts[req.Mode]
	if !ok {
		system = modePrompts[models.ModeGeneric]
	}

	resp, err := c.provider.CompleteText(ctx, llm.CompletionRequest{
		SystemPrompt: system + "\n\n" + responseFormat,
		Prompt:       fmt.Sprintf("Project context:\n%s\n\nUser: %s", contextJSON, req.UserMessage),
		Model:        c.model,
		MaxTokens:    c.maxTokens,
		Temperature:  0.7,
		APIKey:       req.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return parseAssistantReply(resp.Text), nil
}

// parseAssistantReply 优先按JSON解析，失败时把整段文本作为消息
func parseAssistantReply(text string) *models.AssistantResponse {
	if obj := extractJSONObject(text); obj != "" {
		var out models.AssistantResponse
		if err := json.Unmarshal([]byte(obj), &out); err == nil && strings.TrimSpace(out.Message) != "" {
			return &out
		}
	}
	return &models.AssistantResponse{Message: strings.TrimSpace(text)}
}
