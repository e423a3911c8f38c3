// internal/store/selectors.go
package store

import (
	"sort"

	"github.com/Corphon/StoryPlanner/internal/models"
)

// 只读查询，每次调用都基于最新提交的状态计算

func (s *Store) Projects() []models.Project {
	return read(s, func(snap *models.Snapshot) []models.Project { return cloneSlice(snap.Projects) })
}

func (s *Store) ProjectCount() int {
	return read(s, func(snap *models.Snapshot) int { return len(snap.Projects) })
}

// CharacterCount 统计某个项目的角色数
func (s *Store) CharacterCount(projectID string) int {
	return read(s, func(snap *models.Snapshot) int {
		n := 0
		for _, c := range snap.Characters {
			if c.ProjectID == projectID {
				n++
			}
		}
		return n
	})
}

// SelectedProject 按 ui.selectedProjectId 查找项目
func (s *Store) SelectedProject() (models.Project, bool) {
	return read(s, func(snap *models.Snapshot) lookup[models.Project] {
		return find(snap.Projects, snap.UI.SelectedProjectID)
	}).unpack()
}

func (s *Store) Selection() models.UIState {
	return read(s, func(snap *models.Snapshot) models.UIState { return snap.UI })
}

type lookup[T any] struct {
	v  T
	ok bool
}

func (l lookup[T]) unpack() (T, bool) { return l.v, l.ok }

func find[T entity](xs []T, id string) lookup[T] {
	if id == "" {
		return lookup[T]{}
	}
	v, ok := findByID(xs, id)
	return lookup[T]{v, ok}
}

func get[T entity](s *Store, l lens[T], id string) (T, bool) {
	return read(s, func(snap *models.Snapshot) lookup[T] { return find(l.get(snap), id) }).unpack()
}

func (s *Store) Project(id string) (models.Project, bool)     { return get(s, projects, id) }
func (s *Store) Character(id string) (models.Character, bool) { return get(s, characters, id) }
func (s *Store) Location(id string) (models.Location, bool)   { return get(s, locations, id) }
func (s *Store) Item(id string) (models.StoryItem, bool)      { return get(s, items, id) }
func (s *Store) PlotNode(id string) (models.PlotNode, bool)   { return get(s, plotNodes, id) }
func (s *Store) Variable(id string) (models.StoryVariable, bool) {
	return get(s, variables, id)
}
func (s *Store) ContinuityIssue(id string) (models.ContinuityIssue, bool) {
	return get(s, issues, id)
}
func (s *Store) SuggestedVariable(id string) (models.StoryVariable, bool) {
	return get(s, suggested, id)
}

// byProject 返回属于某个项目的实体；projectID 为空时返回全部
func byProject[T entity](s *Store, l lens[T], projectID string, owner func(T) string) []T {
	return read(s, func(snap *models.Snapshot) []T {
		return filter(l.get(snap), func(x T) bool { return projectID == "" || owner(x) == projectID })
	})
}

func (s *Store) CharactersByProject(projectID string) []models.Character {
	return byProject(s, characters, projectID, func(c models.Character) string { return c.ProjectID })
}

func (s *Store) LocationsByProject(projectID string) []models.Location {
	return byProject(s, locations, projectID, func(l models.Location) string { return l.ProjectID })
}

func (s *Store) ItemsByProject(projectID string) []models.StoryItem {
	return byProject(s, items, projectID, func(i models.StoryItem) string { return i.ProjectID })
}

func (s *Store) PlotNodesByProject(projectID string) []models.PlotNode {
	return byProject(s, plotNodes, projectID, func(n models.PlotNode) string { return n.ProjectID })
}

func (s *Store) VariablesByProject(projectID string) []models.StoryVariable {
	return byProject(s, variables, projectID, func(v models.StoryVariable) string { return v.ProjectID })
}

func (s *Store) SuggestedVariablesByProject(projectID string) []models.StoryVariable {
	return byProject(s, suggested, projectID, func(v models.StoryVariable) string { return v.ProjectID })
}

// AiMessagesByProject 按写入顺序返回项目的对话日志
func (s *Store) AiMessagesByProject(projectID string) []models.AiMessage {
	return byProject(s, aiMessages, projectID, func(m models.AiMessage) string { return m.ProjectID })
}

// IssuesByProject includeResolved 为 false 时只返回未解决的问题
func (s *Store) IssuesByProject(projectID string, includeResolved bool) []models.ContinuityIssue {
	return read(s, func(snap *models.Snapshot) []models.ContinuityIssue {
		return filter(snap.ContinuityIssues, func(i models.ContinuityIssue) bool {
			return (projectID == "" || i.ProjectID == projectID) && (includeResolved || !i.Resolved)
		})
	})
}

// PlotChildren 返回某节点的直接子节点（parentID 为空表示根节点），按 order 稳定排序
func (s *Store) PlotChildren(projectID, parentID string) []models.PlotNode {
	return read(s, func(snap *models.Snapshot) []models.PlotNode {
		return sortedChildren(snap.PlotNodes, projectID, parentID)
	})
}

func sortedChildren(nodes []models.PlotNode, projectID, parentID string) []models.PlotNode {
	children := filter(nodes, func(n models.PlotNode) bool {
		return n.ProjectID == projectID && n.ParentID == parentID
	})
	sort.SliceStable(children, func(i, j int) bool { return children[i].Order < children[j].Order })
	return children
}

// PlotDescendants 按深度优先先序返回某节点的全部后代，不含节点本身
// 已访问的节点不会重复展开，父子关系中出现环也能终止
func (s *Store) PlotDescendants(id string) []models.PlotNode {
	return read(s, func(snap *models.Snapshot) []models.PlotNode {
		root, ok := findByID(snap.PlotNodes, id)
		if !ok {
			return []models.PlotNode{}
		}
		out := make([]models.PlotNode, 0)
		visited := idSet{root.ID: {}}
		var walk func(parentID string)
		walk = func(parentID string) {
			for _, child := range sortedChildren(snap.PlotNodes, root.ProjectID, parentID) {
				if visited.has(child.ID) {
					continue
				}
				visited[child.ID] = struct{}{}
				out = append(out, child)
				walk(child.ID)
			}
		}
		walk(root.ID)
		return out
	})
}

// Stats 全局计数，用于概览接口
func (s *Store) Stats() map[string]int {
	return read(s, func(snap *models.Snapshot) map[string]int {
		return map[string]int{
			projects.name:   len(snap.Projects),
			characters.name: len(snap.Characters),
			locations.name:  len(snap.Locations),
			items.name:      len(snap.Items),
			plotNodes.name:  len(snap.PlotNodes),
			variables.name:  len(snap.Variables),
			aiMessages.name: len(snap.AiMessages),
			issues.name:     len(snap.ContinuityIssues),
			suggested.name:  len(snap.SuggestedVariables),
		}
	})
}
