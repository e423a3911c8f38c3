// internal/models/ai_message.go
package models

import "time"

type MessageRole string

const (
	MessageUser      MessageRole = "user"
	MessageAssistant MessageRole = "assistant"
	MessageSystem    MessageRole = "system"
)

// AiMessage 助手对话日志中的一条消息，只追加不修改
type AiMessage struct {
	ID              string            `json:"id"`
	ProjectID       string            `json:"projectId"`
	Role            MessageRole       `json:"role"`
	Content         string            `json:"content"`
	Mode            AssistantMode     `json:"mode,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	ContextSnapshot *AssistantContext `json:"contextSnapshot,omitempty"`
}

func (m AiMessage) EntityID() string { return m.ID }
