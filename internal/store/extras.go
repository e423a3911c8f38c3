// internal/store/extras.go
package store

import "github.com/Corphon/StoryPlanner/internal/models"

// RecomputeProjectStats 根据情节节点和角色重新计算项目统计
func (s *Store) RecomputeProjectStats(projectID string) (models.ProjectStats, bool) {
	var (
		stats models.ProjectStats
		found bool
	)
	s.mutate("stats.projects", func(cur models.Snapshot) models.Snapshot {
		i := indexOf(cur.Projects, projectID)
		if i < 0 {
			return cur
		}
		stats, found = computeStats(&cur, projectID), true
		p := cur.Projects[i]
		p.Stats = stats
		cur.Projects = replaceAt(cur.Projects, i, p)
		return cur
	})
	return stats, found
}

func computeStats(snap *models.Snapshot, projectID string) models.ProjectStats {
	var stats models.ProjectStats
	for _, n := range snap.PlotNodes {
		if n.ProjectID != projectID {
			continue
		}
		switch n.Type {
		case models.PlotScene:
			stats.SceneCount++
		case models.PlotChapter:
			stats.ChapterCount++
		}
		if n.WordCount > 0 {
			stats.WordCount += n.WordCount
		} else if n.ManuscriptContent != "" {
			stats.WordCount += models.CountWords(n.ManuscriptContent)
		}
	}
	for _, c := range snap.Characters {
		if c.ProjectID == projectID {
			stats.CharacterCount++
		}
	}
	return stats
}

// AddSuggestedVariables 保存助手建议的变量，等待用户接受或忽略
func (s *Store) AddSuggestedVariables(vs ...models.StoryVariable) {
	if len(vs) == 0 {
		return
	}
	s.mutate("add.suggestedVariables", func(cur models.Snapshot) models.Snapshot {
		cur.SuggestedVariables = appendCopy(cur.SuggestedVariables, vs...)
		return cur
	})
}

// AcceptSuggestedVariable 把建议变量移入正式变量集合，状态置为 confirmed
func (s *Store) AcceptSuggestedVariable(id string) (models.StoryVariable, bool) {
	var (
		accepted models.StoryVariable
		found    bool
	)
	now := s.now()
	s.mutate("accept.suggestedVariables", func(cur models.Snapshot) models.Snapshot {
		kept, removed := removeWhere(cur.SuggestedVariables, func(v models.StoryVariable) bool { return v.ID == id })
		if len(removed) == 0 {
			return cur
		}
		accepted, found = removed[0], true
		accepted.Status = models.VariableConfirmed
		if accepted.CreatedAt.IsZero() {
			accepted.CreatedAt = now
		}
		accepted.UpdatedAt = now

		cur.SuggestedVariables = kept
		cur.Variables = appendCopy(cur.Variables, accepted)
		return cur
	})
	return accepted, found
}

// DismissSuggestedVariable 忽略一条建议
func (s *Store) DismissSuggestedVariable(id string) bool {
	var found bool
	s.mutate("dismiss.suggestedVariables", func(cur models.Snapshot) models.Snapshot {
		var removed []models.StoryVariable
		cur.SuggestedVariables, removed = removeWhere(cur.SuggestedVariables, func(v models.StoryVariable) bool { return v.ID == id })
		found = len(removed) > 0
		return cur
	})
	return found
}

// MergeSnapshot 按 id 合并导入数据：已存在的记录保留，重复的导入记录跳过
// 返回每个集合实际新增的记录数
func (s *Store) MergeSnapshot(data models.ExportData) map[string]int {
	counts := make(map[string]int)
	s.mutate("merge", func(cur models.Snapshot) models.Snapshot {
		cur.Projects, counts[projects.name] = mergeByID(cur.Projects, data.Projects)
		cur.Characters, counts[characters.name] = mergeByID(cur.Characters, data.Characters)
		cur.Locations, counts[locations.name] = mergeByID(cur.Locations, data.Locations)
		cur.Items, counts[items.name] = mergeByID(cur.Items, data.Items)
		cur.PlotNodes, counts[plotNodes.name] = mergeByID(cur.PlotNodes, data.PlotNodes)
		cur.Variables, counts[variables.name] = mergeByID(cur.Variables, data.Variables)
		cur.AiMessages, counts[aiMessages.name] = mergeByID(cur.AiMessages, data.AiMessages)
		cur.ContinuityIssues, counts[issues.name] = mergeByID(cur.ContinuityIssues, data.ContinuityIssues)
		return cur
	})
	return counts
}

func mergeByID[T entity](existing, incoming []T) ([]T, int) {
	seen := idsOf(existing)
	added := make([]T, 0, len(incoming))
	for _, x := range incoming {
		id := x.EntityID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		added = append(added, x)
	}
	if len(added) == 0 {
		return existing, 0
	}
	return appendCopy(existing, added...), len(added)
}
