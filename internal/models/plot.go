// internal/models/plot.go
package models

import (
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
)

// PlotNodeType 情节树节点类型
type PlotNodeType string

const (
	PlotAct     PlotNodeType = "act"
	PlotArc     PlotNodeType = "arc"
	PlotChapter PlotNodeType = "chapter"
	PlotScene   PlotNodeType = "scene"
)

func (t PlotNodeType) Valid() bool {
	switch t {
	case PlotAct, PlotArc, PlotChapter, PlotScene:
		return true
	}
	return false
}

// PlotNode 情节树中的一个节点（幕/弧/章/场景）
// ParentID 为空表示根节点；Order 决定同级节点的顺序
type PlotNode struct {
	ID                   string       `json:"id"`
	ProjectID            string       `json:"projectId"`
	ParentID             string       `json:"parentId,omitempty"`
	Type                 PlotNodeType `json:"type"`
	Title                string       `json:"title"`
	Summary              string       `json:"summary,omitempty"`
	Order                int          `json:"order"`
	POVCharacterID       string       `json:"povCharacterId,omitempty"`
	LocationID           string       `json:"locationId,omitempty"`
	InvolvedCharacterIDs []string     `json:"involvedCharacterIds,omitempty"`
	InvolvedLocationIDs  []string     `json:"involvedLocationIds,omitempty"`
	ManuscriptContent    string       `json:"manuscriptContent,omitempty"`
	WordCount            int          `json:"wordCount,omitempty"`
	Notes                string       `json:"notes,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}

func (n PlotNode) EntityID() string { return n.ID }

func (n PlotNode) Validate() error {
	if n.ProjectID == "" {
		return apperrors.NewValidationError("情节节点必须属于一个项目", nil)
	}
	if strings.TrimSpace(n.Title) == "" {
		return apperrors.NewValidationError("情节节点标题不能为空", nil)
	}
	if !n.Type.Valid() {
		return apperrors.NewValidationError("无效的情节节点类型: "+string(n.Type), nil)
	}
	if n.ParentID != "" && n.ParentID == n.ID {
		return apperrors.NewValidationError("情节节点不能以自身为父节点", nil)
	}
	return nil
}

// CountWords 按空白分隔统计字数
func CountWords(text string) int {
	return len(strings.Fields(text))
}
