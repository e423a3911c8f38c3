// internal/store/entities.go
package store

import "github.com/Corphon/StoryPlanner/internal/models"

// 项目

func (s *Store) AddProject(p models.Project) { add(s, projects, p) }

// InsertProject 与 AddProject 相同，但 id 已存在时不写入并返回 false
func (s *Store) InsertProject(p models.Project) bool { return insert(s, projects, p) }

func (s *Store) UpdateProject(id string, p Patch, opts ...UpdateOption) error {
	return update(s, projects, id, p, nil, opts)
}

// DeleteProject 删除项目及其全部子实体，并清除相关的界面选择
func (s *Store) DeleteProject(id string) { remove(s, projects, id, cascadeProjects) }

// 角色

func (s *Store) AddCharacter(c models.Character) { add(s, characters, c) }

func (s *Store) InsertCharacter(c models.Character) bool { return insert(s, characters, c) }

func (s *Store) UpdateCharacter(id string, p Patch, opts ...UpdateOption) error {
	return update(s, characters, id, p, nil, opts)
}

// DeleteCharacter 删除角色，同时清理情节节点的视角/参与角色引用和其他角色指向它的关系
func (s *Store) DeleteCharacter(id string) { remove(s, characters, id, cascadeCharacters) }

// 地点

func (s *Store) AddLocation(l models.Location) { add(s, locations, l) }

func (s *Store) InsertLocation(l models.Location) bool { return insert(s, locations, l) }

func (s *Store) UpdateLocation(id string, p Patch, opts ...UpdateOption) error {
	return update(s, locations, id, p, nil, opts)
}

// DeleteLocation 删除地点，同时清理情节节点的地点引用
func (s *Store) DeleteLocation(id string) { remove(s, locations, id, cascadeLocations) }

// 物品

func (s *Store) AddItem(i models.StoryItem) { add(s, items, i) }

func (s *Store) InsertItem(i models.StoryItem) bool { return insert(s, items, i) }

func (s *Store) UpdateItem(id string, p Patch, opts ...UpdateOption) error {
	return update(s, items, id, p, nil, opts)
}

func (s *Store) DeleteItem(id string) {
	remove(s, items, id, clearEntitySelection[models.StoryItem])
}

// 情节节点

func (s *Store) AddPlotNode(n models.PlotNode) { add(s, plotNodes, n) }

func (s *Store) InsertPlotNode(n models.PlotNode) bool { return insert(s, plotNodes, n) }

func (s *Store) UpdatePlotNode(id string, p Patch, opts ...UpdateOption) error {
	return update(s, plotNodes, id, p, nil, opts)
}

// DeletePlotNode 只删除该节点本身，子节点保留（删除子树需调用方先删除 PlotDescendants）
func (s *Store) DeletePlotNode(id string) {
	remove(s, plotNodes, id, clearEntitySelection[models.PlotNode])
}

// UpdateManuscript 在一次变更中写入正文并重新计算字数
func (s *Store) UpdateManuscript(id, content string) (models.PlotNode, bool) {
	now := s.now()
	return replace(s, plotNodes, id, func(n models.PlotNode) models.PlotNode {
		n.ManuscriptContent = content
		n.WordCount = models.CountWords(content)
		n.UpdatedAt = now
		return n
	})
}

// 故事变量

func (s *Store) AddVariable(v models.StoryVariable) { add(s, variables, v) }

func (s *Store) InsertVariable(v models.StoryVariable) bool { return insert(s, variables, v) }

func (s *Store) UpdateVariable(id string, p Patch, opts ...UpdateOption) error {
	return update(s, variables, id, p, nil, opts)
}

// DeleteVariable 不检查锁定状态，锁定保护由调用方负责
func (s *Store) DeleteVariable(id string) {
	remove(s, variables, id, clearEntitySelection[models.StoryVariable])
}

// 连贯性问题，resolvedAt 在写入时按 resolved 归一

func (s *Store) AddContinuityIssue(i models.ContinuityIssue) {
	add(s, issues, i.Normalize(s.now()))
}

func (s *Store) InsertContinuityIssue(i models.ContinuityIssue) bool {
	return insert(s, issues, i.Normalize(s.now()))
}

func (s *Store) UpdateContinuityIssue(id string, p Patch, opts ...UpdateOption) error {
	now := s.now()
	return update(s, issues, id, p, func(i models.ContinuityIssue) models.ContinuityIssue {
		return i.Normalize(now)
	}, opts)
}

func (s *Store) DeleteContinuityIssue(id string) {
	remove(s, issues, id, clearEntitySelection[models.ContinuityIssue])
}

// ResolveContinuityIssue 标记为已解决并记录解决时间
func (s *Store) ResolveContinuityIssue(id string) (models.ContinuityIssue, bool) {
	now := s.now()
	return replace(s, issues, id, func(i models.ContinuityIssue) models.ContinuityIssue {
		if i.Resolved && i.ResolvedAt != nil {
			return i
		}
		i.Resolved = true
		i.ResolvedAt = &now
		return i
	})
}

// ReopenContinuityIssue 重新打开已解决的问题
func (s *Store) ReopenContinuityIssue(id string) (models.ContinuityIssue, bool) {
	return replace(s, issues, id, func(i models.ContinuityIssue) models.ContinuityIssue {
		i.Resolved = false
		i.ResolvedAt = nil
		return i
	})
}

// AI 对话日志只追加，只能按项目整体清空

func (s *Store) AddAiMessage(m models.AiMessage) { add(s, aiMessages, m) }

// ClearAiMessages 删除项目的全部对话消息，返回删除条数
func (s *Store) ClearAiMessages(projectID string) int {
	var n int
	s.mutate("clear.aiMessages", func(cur models.Snapshot) models.Snapshot {
		var removed []models.AiMessage
		cur.AiMessages, removed = removeWhere(cur.AiMessages, func(m models.AiMessage) bool {
			return m.ProjectID == projectID
		})
		n = len(removed)
		return cur
	})
	return n
}

// 界面选择，空字符串表示未选择

func (s *Store) SetSelectedProjectID(id string) {
	s.mutate("ui.selectedProjectId", func(cur models.Snapshot) models.Snapshot {
		cur.UI.SelectedProjectID = id
		return cur
	})
}

func (s *Store) SetSelectedEntityID(id string) {
	s.mutate("ui.selectedEntityId", func(cur models.Snapshot) models.Snapshot {
		cur.UI.SelectedEntityID = id
		return cur
	})
}

func (s *Store) SetSelectedPlotNodeID(id string) {
	s.mutate("ui.selectedPlotNodeId", func(cur models.Snapshot) models.Snapshot {
		cur.UI.SelectedPlotNodeID = id
		return cur
	})
}

// SetSelection 一次替换全部选择字段
func (s *Store) SetSelection(ui models.UIState) {
	s.mutate("ui", func(cur models.Snapshot) models.Snapshot {
		cur.UI = ui
		return cur
	})
}
