// internal/store/cascade.go
package store

import "github.com/Corphon/StoryPlanner/internal/models"

// cascadeStats 一次级联清理改动的记录数
type cascadeStats struct {
	PlotNodes     int
	Relationships int
	Removed       map[string]int
}

// stripReferences 清理情节节点和角色关系中对已删除角色、地点的引用
// 连贯性问题的 relatedEntityIds 保留原值，用于追溯
func stripReferences(snap *models.Snapshot, chars, locs idSet) cascadeStats {
	var stats cascadeStats
	if len(chars) == 0 && len(locs) == 0 {
		return stats
	}

	snap.PlotNodes, stats.PlotNodes = mapSlice(snap.PlotNodes, func(n models.PlotNode) (models.PlotNode, bool) {
		changed := false
		if chars.has(n.POVCharacterID) {
			n.POVCharacterID = ""
			changed = true
		}
		if locs.has(n.LocationID) {
			n.LocationID = ""
			changed = true
		}
		for id := range chars {
			var hit bool
			if n.InvolvedCharacterIDs, hit = withoutID(n.InvolvedCharacterIDs, id); hit {
				changed = true
			}
		}
		for id := range locs {
			var hit bool
			if n.InvolvedLocationIDs, hit = withoutID(n.InvolvedLocationIDs, id); hit {
				changed = true
			}
		}
		return n, changed
	})

	if len(chars) > 0 {
		snap.Characters, _ = mapSlice(snap.Characters, func(c models.Character) (models.Character, bool) {
			kept, dropped := removeWhere(c.Relationships, func(r models.CharacterRelationship) bool {
				return chars.has(r.CharacterID)
			})
			if len(dropped) == 0 {
				return c, false
			}
			c.Relationships = kept
			stats.Relationships += len(dropped)
			return c, true
		})
	}
	return stats
}

// clearSelection 清除指向已删除实体的界面选择
func clearSelection(ui *models.UIState, gone idSet) {
	if gone.has(ui.SelectedProjectID) {
		ui.SelectedProjectID = ""
	}
	if gone.has(ui.SelectedEntityID) {
		ui.SelectedEntityID = ""
	}
	if gone.has(ui.SelectedPlotNodeID) {
		ui.SelectedPlotNodeID = ""
	}
}

func cascadeCharacters(snap *models.Snapshot, removed []models.Character) cascadeStats {
	gone := idsOf(removed)
	stats := stripReferences(snap, gone, nil)
	clearSelection(&snap.UI, gone)
	return stats
}

func cascadeLocations(snap *models.Snapshot, removed []models.Location) cascadeStats {
	gone := idsOf(removed)
	stats := stripReferences(snap, nil, gone)
	clearSelection(&snap.UI, gone)
	return stats
}

// cascadeProjects 删除属于这些项目的全部实体，并清理其他项目中残留的引用
func cascadeProjects(snap *models.Snapshot, removed []models.Project) cascadeStats {
	owned := idsOf(removed)
	gone := idsOf(removed)
	counts := make(map[string]int)

	var chars []models.Character
	snap.Characters, chars = removeWhere(snap.Characters, func(c models.Character) bool { return owned.has(c.ProjectID) })
	var locs []models.Location
	snap.Locations, locs = removeWhere(snap.Locations, func(l models.Location) bool { return owned.has(l.ProjectID) })
	var its []models.StoryItem
	snap.Items, its = removeWhere(snap.Items, func(i models.StoryItem) bool { return owned.has(i.ProjectID) })
	var nodes []models.PlotNode
	snap.PlotNodes, nodes = removeWhere(snap.PlotNodes, func(n models.PlotNode) bool { return owned.has(n.ProjectID) })
	var vars []models.StoryVariable
	snap.Variables, vars = removeWhere(snap.Variables, func(v models.StoryVariable) bool { return owned.has(v.ProjectID) })
	var msgs []models.AiMessage
	snap.AiMessages, msgs = removeWhere(snap.AiMessages, func(m models.AiMessage) bool { return owned.has(m.ProjectID) })
	var iss []models.ContinuityIssue
	snap.ContinuityIssues, iss = removeWhere(snap.ContinuityIssues, func(i models.ContinuityIssue) bool { return owned.has(i.ProjectID) })
	if snap.SuggestedVariables != nil {
		var sug []models.StoryVariable
		snap.SuggestedVariables, sug = removeWhere(snap.SuggestedVariables, func(v models.StoryVariable) bool { return owned.has(v.ProjectID) })
		counts["suggestedVariables"] = len(sug)
		mergeIDs(gone, idsOf(sug))
	}

	counts["characters"] = len(chars)
	counts["locations"] = len(locs)
	counts["items"] = len(its)
	counts["plotNodes"] = len(nodes)
	counts["variables"] = len(vars)
	counts["aiMessages"] = len(msgs)
	counts["continuityIssues"] = len(iss)

	charIDs, locIDs := idsOf(chars), idsOf(locs)
	for _, set := range []idSet{charIDs, locIDs, idsOf(its), idsOf(nodes), idsOf(vars), idsOf(iss)} {
		mergeIDs(gone, set)
	}

	stats := stripReferences(snap, charIDs, locIDs)
	stats.Removed = counts
	clearSelection(&snap.UI, gone)
	return stats
}

func mergeIDs(dst, src idSet) {
	for id := range src {
		dst[id] = struct{}{}
	}
}

// clearEntitySelection 供没有级联规则的实体删除使用
func clearEntitySelection[T entity](snap *models.Snapshot, removed []T) cascadeStats {
	clearSelection(&snap.UI, idsOf(removed))
	return cascadeStats{}
}
