// internal/models/character.go
package models

import (
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
)

// CharacterRole 角色在故事中的定位
type CharacterRole string

const (
	RoleProtagonist CharacterRole = "protagonist"
	RoleAntagonist  CharacterRole = "antagonist"
	RoleSupporting  CharacterRole = "supporting"
	RoleOther       CharacterRole = "other"
)

func (r CharacterRole) Valid() bool {
	switch r {
	case RoleProtagonist, RoleAntagonist, RoleSupporting, RoleOther:
		return true
	}
	return false
}

// CharacterRelationship 指向另一个角色的关系
// CharacterID 允许暂时悬空，删除目标角色时会被清理
type CharacterRelationship struct {
	CharacterID string `json:"characterId"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Character 表示项目中的一个角色
type Character struct {
	ID            string                  `json:"id"`
	ProjectID     string                  `json:"projectId"`
	Name          string                  `json:"name"`
	Role          CharacterRole           `json:"role"`
	Description   string                  `json:"description,omitempty"`
	Backstory     string                  `json:"backstory,omitempty"`
	Motivation    string                  `json:"motivation,omitempty"`
	Traits        []string                `json:"traits"`
	Relationships []CharacterRelationship `json:"relationships"`
	Notes         string                  `json:"notes,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

func (c Character) EntityID() string { return c.ID }

// Validate 校验角色必填字段
func (c Character) Validate() error {
	if c.ProjectID == "" {
		return apperrors.NewValidationError("角色必须属于一个项目", nil)
	}
	if strings.TrimSpace(c.Name) == "" {
		return apperrors.NewValidationError("角色名称不能为空", nil)
	}
	if c.Role != "" && !c.Role.Valid() {
		return apperrors.NewValidationError("无效的角色定位: "+string(c.Role), nil)
	}
	return nil
}
