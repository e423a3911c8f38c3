// internal/models/item.go
package models

import (
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
)

type ItemImportance string

const (
	ImportanceMinor    ItemImportance = "minor"
	ImportanceMajor    ItemImportance = "major"
	ImportanceMcGuffin ItemImportance = "mcguffin"
)

func (i ItemImportance) Valid() bool {
	switch i {
	case ImportanceMinor, ImportanceMajor, ImportanceMcGuffin:
		return true
	}
	return false
}

// StoryItem 表示故事中的重要物品
type StoryItem struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Importance  ItemImportance `json:"importance"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (i StoryItem) EntityID() string { return i.ID }

func (i StoryItem) Validate() error {
	if i.ProjectID == "" {
		return apperrors.NewValidationError("物品必须属于一个项目", nil)
	}
	if strings.TrimSpace(i.Name) == "" {
		return apperrors.NewValidationError("物品名称不能为空", nil)
	}
	if i.Importance != "" && !i.Importance.Valid() {
		return apperrors.NewValidationError("无效的物品重要性: "+string(i.Importance), nil)
	}
	return nil
}
