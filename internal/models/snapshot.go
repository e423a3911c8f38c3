// internal/models/snapshot.go
package models

// SnapshotVersion 当前持久化格式版本
const SnapshotVersion = 1

// UIState 界面选择状态，空字符串表示未选择
type UIState struct {
	SelectedProjectID  string `json:"selectedProjectId,omitempty"`
	SelectedEntityID   string `json:"selectedEntityId,omitempty"`
	SelectedPlotNodeID string `json:"selectedPlotNodeId,omitempty"`
}

// Snapshot 所有实体集合的完整快照，也是持久化槽位中的JSON结构
type Snapshot struct {
	Version            int               `json:"version"`
	Projects           []Project         `json:"projects"`
	Characters         []Character       `json:"characters"`
	Locations          []Location        `json:"locations"`
	Items              []StoryItem       `json:"items"`
	PlotNodes          []PlotNode        `json:"plotNodes"`
	Variables          []StoryVariable   `json:"variables"`
	AiMessages         []AiMessage       `json:"aiMessages"`
	ContinuityIssues   []ContinuityIssue `json:"continuityIssues"`
	SuggestedVariables []StoryVariable   `json:"suggestedVariables,omitempty"`
	UI                 UIState           `json:"ui"`
}

// EmptySnapshot 返回空集合的默认状态
func EmptySnapshot() Snapshot {
	return Snapshot{
		Version:          SnapshotVersion,
		Projects:         []Project{},
		Characters:       []Character{},
		Locations:        []Location{},
		Items:            []StoryItem{},
		PlotNodes:        []PlotNode{},
		Variables:        []StoryVariable{},
		AiMessages:       []AiMessage{},
		ContinuityIssues: []ContinuityIssue{},
	}
}

// WithDefaults 将缺失（nil）的集合替换为空集合
// 已存在的键整体保留，不做深度合并
func (s Snapshot) WithDefaults() Snapshot {
	d := EmptySnapshot()
	if s.Version == 0 {
		s.Version = d.Version
	}
	if s.Projects == nil {
		s.Projects = d.Projects
	}
	if s.Characters == nil {
		s.Characters = d.Characters
	}
	if s.Locations == nil {
		s.Locations = d.Locations
	}
	if s.Items == nil {
		s.Items = d.Items
	}
	if s.PlotNodes == nil {
		s.PlotNodes = d.PlotNodes
	}
	if s.Variables == nil {
		s.Variables = d.Variables
	}
	if s.AiMessages == nil {
		s.AiMessages = d.AiMessages
	}
	if s.ContinuityIssues == nil {
		s.ContinuityIssues = d.ContinuityIssues
	}
	return s
}
