// internal/models/variable.go
package models

import (
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
)

type VariableType string

const (
	VariableString  VariableType = "string"
	VariableNumber  VariableType = "number"
	VariableBoolean VariableType = "boolean"
	VariableEnum    VariableType = "enum"
	VariableRule    VariableType = "rule"
)

func (t VariableType) Valid() bool {
	switch t {
	case VariableString, VariableNumber, VariableBoolean, VariableEnum, VariableRule:
		return true
	}
	return false
}

type VariableStatus string

const (
	VariableTentative VariableStatus = "tentative"
	VariableConfirmed VariableStatus = "confirmed"
	VariableLocked    VariableStatus = "locked"
)

func (s VariableStatus) Valid() bool {
	switch s {
	case VariableTentative, VariableConfirmed, VariableLocked:
		return true
	}
	return false
}

// StoryVariable 表示故事设定变量（世界规则、时间线事实等）
// Key 由调用方选择，不保证全局唯一
type StoryVariable struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	Key         string         `json:"key"`
	Label       string         `json:"label"`
	Type        VariableType   `json:"type"`
	Value       any            `json:"value"`
	Options     []string       `json:"options,omitempty"` // enum 类型的可选值
	Description string         `json:"description,omitempty"`
	Status      VariableStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (v StoryVariable) EntityID() string { return v.ID }

// IsLocked 锁定的变量不应通过常规界面流程删除
func (v StoryVariable) IsLocked() bool { return v.Status == VariableLocked }

func (v StoryVariable) Validate() error {
	if v.ProjectID == "" {
		return apperrors.NewValidationError("变量必须属于一个项目", nil)
	}
	if strings.TrimSpace(v.Key) == "" {
		return apperrors.NewValidationError("变量键不能为空", nil)
	}
	if !v.Type.Valid() {
		return apperrors.NewValidationError("无效的变量类型: "+string(v.Type), nil)
	}
	if v.Status != "" && !v.Status.Valid() {
		return apperrors.NewValidationError("无效的变量状态: "+string(v.Status), nil)
	}
	return nil
}
