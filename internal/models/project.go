// internal/models/project.go
package models

import (
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
)

// ProjectStatus 项目所处的写作阶段
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectDrafting  ProjectStatus = "drafting"
	ProjectRevising  ProjectStatus = "revising"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on_hold"
)

// Valid 检查状态是否属于枚举集合
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectDrafting, ProjectRevising, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

// ProjectStats 项目统计信息
type ProjectStats struct {
	WordCount      int `json:"wordCount"`
	SceneCount     int `json:"sceneCount"`
	ChapterCount   int `json:"chapterCount"`
	CharacterCount int `json:"characterCount"`
}

// Project 表示一个写作项目，是其他所有实体的根
type Project struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Logline         string        `json:"logline,omitempty"`
	Status          ProjectStatus `json:"status"`
	Genre           []string      `json:"genre"`
	Themes          []string      `json:"themes"`
	TargetWordCount int           `json:"targetWordCount,omitempty"`
	Archived        bool          `json:"archived"`
	Stats           ProjectStats  `json:"stats"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func (p Project) EntityID() string { return p.ID }

// Validate 校验标题与状态
func (p Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return apperrors.NewValidationError("项目标题不能为空", nil)
	}
	if !p.Status.Valid() {
		return apperrors.NewValidationError("无效的项目状态: "+string(p.Status), nil)
	}
	return nil
}
