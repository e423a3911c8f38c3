// internal/models/location.go
package models

import (
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
)

// Location 表示故事中的地点
type Location struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"projectId"`
	Name            string    `json:"name"`
	Type            string    `json:"type"` // city, building, region, etc.
	Description     string    `json:"description,omitempty"`
	ImportantEvents []string  `json:"importantEvents"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (l Location) EntityID() string { return l.ID }

func (l Location) Validate() error {
	if l.ProjectID == "" {
		return apperrors.NewValidationError("地点必须属于一个项目", nil)
	}
	if strings.TrimSpace(l.Name) == "" {
		return apperrors.NewValidationError("地点名称不能为空", nil)
	}
	return nil
}
