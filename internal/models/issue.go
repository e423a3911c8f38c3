// internal/models/issue.go
package models

import (
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
)

type IssueSeverity string

const (
	SeverityMinor    IssueSeverity = "minor"
	SeverityModerate IssueSeverity = "moderate"
	SeverityMajor    IssueSeverity = "major"
)

func (s IssueSeverity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor:
		return true
	}
	return false
}

// ContinuityIssue 连贯性问题，RelatedEntityIDs 可引用任意实体
// 不变式: ResolvedAt 非空 当且仅当 Resolved 为 true
type ContinuityIssue struct {
	ID               string        `json:"id"`
	ProjectID        string        `json:"projectId"`
	Type             string        `json:"type"` // timeline, character, location, variable, logic
	Severity         IssueSeverity `json:"severity"`
	Title            string        `json:"title,omitempty"`
	Description      string        `json:"description"`
	RelatedEntityIDs []string      `json:"relatedEntityIds"`
	Resolved         bool          `json:"resolved"`
	ResolvedAt       *time.Time    `json:"resolvedAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

func (i ContinuityIssue) EntityID() string { return i.ID }

// Normalize 修正 Resolved/ResolvedAt 不一致
func (i ContinuityIssue) Normalize(now time.Time) ContinuityIssue {
	switch {
	case i.Resolved && i.ResolvedAt == nil:
		t := now
		i.ResolvedAt = &t
	case !i.Resolved && i.ResolvedAt != nil:
		i.ResolvedAt = nil
	}
	return i
}

func (i ContinuityIssue) Validate() error {
	if i.ProjectID == "" {
		return apperrors.NewValidationError("问题必须属于一个项目", nil)
	}
	if strings.TrimSpace(i.Description) == "" && strings.TrimSpace(i.Title) == "" {
		return apperrors.NewValidationError("问题描述不能为空", nil)
	}
	if !i.Severity.Valid() {
		return apperrors.NewValidationError("无效的问题严重度: "+string(i.Severity), nil)
	}
	return nil
}
