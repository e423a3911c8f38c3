// internal/store/collection.go
package store

import "github.com/Corphon/StoryPlanner/internal/models"

// entity 所有按 id 存储的实体
type entity interface {
	EntityID() string
}

// lens 指向快照中的一个实体集合
type lens[T entity] struct {
	name string
	get  func(*models.Snapshot) []T
	set  func(*models.Snapshot, []T)
}

var (
	projects = lens[models.Project]{"projects",
		func(s *models.Snapshot) []models.Project { return s.Projects },
		func(s *models.Snapshot, v []models.Project) { s.Projects = v }}
	characters = lens[models.Character]{"characters",
		func(s *models.Snapshot) []models.Character { return s.Characters },
		func(s *models.Snapshot, v []models.Character) { s.Characters = v }}
	locations = lens[models.Location]{"locations",
		func(s *models.Snapshot) []models.Location { return s.Locations },
		func(s *models.Snapshot, v []models.Location) { s.Locations = v }}
	items = lens[models.StoryItem]{"items",
		func(s *models.Snapshot) []models.StoryItem { return s.Items },
		func(s *models.Snapshot, v []models.StoryItem) { s.Items = v }}
	plotNodes = lens[models.PlotNode]{"plotNodes",
		func(s *models.Snapshot) []models.PlotNode { return s.PlotNodes },
		func(s *models.Snapshot, v []models.PlotNode) { s.PlotNodes = v }}
	variables = lens[models.StoryVariable]{"variables",
		func(s *models.Snapshot) []models.StoryVariable { return s.Variables },
		func(s *models.Snapshot, v []models.StoryVariable) { s.Variables = v }}
	aiMessages = lens[models.AiMessage]{"aiMessages",
		func(s *models.Snapshot) []models.AiMessage { return s.AiMessages },
		func(s *models.Snapshot, v []models.AiMessage) { s.AiMessages = v }}
	issues = lens[models.ContinuityIssue]{"continuityIssues",
		func(s *models.Snapshot) []models.ContinuityIssue { return s.ContinuityIssues },
		func(s *models.Snapshot, v []models.ContinuityIssue) { s.ContinuityIssues = v }}
	suggested = lens[models.StoryVariable]{"suggestedVariables",
		func(s *models.Snapshot) []models.StoryVariable { return s.SuggestedVariables },
		func(s *models.Snapshot, v []models.StoryVariable) { s.SuggestedVariables = v }}
)

func cloneSlice[T any](xs []T) []T {
	if xs == nil {
		return nil
	}
	out := make([]T, len(xs))
	copy(out, xs)
	return out
}

// appendCopy 返回追加了 vs 的新切片，原切片的底层数组不受影响
func appendCopy[T any](xs []T, vs ...T) []T {
	out := make([]T, len(xs), len(xs)+len(vs))
	copy(out, xs)
	return append(out, vs...)
}

func indexOf[T entity](xs []T, id string) int {
	for i := range xs {
		if xs[i].EntityID() == id {
			return i
		}
	}
	return -1
}

func findByID[T entity](xs []T, id string) (T, bool) {
	if i := indexOf(xs, id); i >= 0 {
		return xs[i], true
	}
	var zero T
	return zero, false
}

func replaceAt[T any](xs []T, i int, v T) []T {
	out := cloneSlice(xs)
	out[i] = v
	return out
}

// removeWhere 返回去掉满足 pred 的元素后的新切片以及被去掉的元素
func removeWhere[T any](xs []T, pred func(T) bool) (kept []T, removed []T) {
	kept = make([]T, 0, len(xs))
	for _, x := range xs {
		if pred(x) {
			removed = append(removed, x)
			continue
		}
		kept = append(kept, x)
	}
	return kept, removed
}

// mapSlice 对每个元素应用 fn，返回新切片与被改动的元素个数
func mapSlice[T any](xs []T, fn func(T) (T, bool)) ([]T, int) {
	out := make([]T, len(xs))
	changed := 0
	for i, x := range xs {
		y, ok := fn(x)
		if ok {
			changed++
		}
		out[i] = y
	}
	return out, changed
}

func filter[T any](xs []T, pred func(T) bool) []T {
	out := make([]T, 0)
	for _, x := range xs {
		if pred(x) {
			out = append(out, x)
		}
	}
	return out
}

// withoutID 返回去掉所有等于 id 的元素后的新切片
func withoutID(ids []string, id string) ([]string, bool) {
	if !containsID(ids, id) {
		return ids, false
	}
	out := make([]string, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out, true
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// idSet 一组被删除实体的 id
type idSet map[string]struct{}

func idsOf[T entity](xs []T) idSet {
	set := make(idSet, len(xs))
	for _, x := range xs {
		set[x.EntityID()] = struct{}{}
	}
	return set
}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok && id != ""
}
