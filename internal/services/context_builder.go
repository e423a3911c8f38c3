// internal/services/context_builder.go
package services

import (
	"fmt"
	"strings"

	"github.com/Corphon/StoryPlanner/internal/models"
)

// maxKeyCharacters 上下文中最多包含的角色数
const maxKeyCharacters = 8

// BuildAssistantContext 根据当前状态为助手构建可序列化的上下文快照
// plotNodeID 为空时不包含当前情节节点
func BuildAssistantContext(snap models.Snapshot, projectID, plotNodeID string) models.AssistantContext {
	ctx := models.AssistantContext{
		KeyCharacters:  []models.CharacterSummary{},
		NamedVariables: map[string]any{},
	}

	var project *models.Project
	for i := range snap.Projects {
		if snap.Projects[i].ID == projectID {
			project = &snap.Projects[i]
			break
		}
	}
	if project == nil {
		return ctx
	}
	ctx.ProjectSummary = summarizeProject(*project)
	ctx.KeyCharacters = keyCharacters(snap.Characters, projectID)

	for _, v := range snap.Variables {
		if v.ProjectID == projectID && v.Key != "" {
			ctx.NamedVariables[v.Key] = v.Value
		}
	}

	if plotNodeID != "" {
		for _, n := range snap.PlotNodes {
			if n.ID == plotNodeID && n.ProjectID == projectID {
				ctx.CurrentPlotNodeSummary = summarizePlotNode(snap, n)
				break
			}
		}
	}
	return ctx
}

func summarizeProject(p models.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nStatus: %s", p.Title, p.Status)
	if p.Logline != "" {
		fmt.Fprintf(&b, "\nLogline: %s", p.Logline)
	}
	if len(p.Genre) > 0 {
		fmt.Fprintf(&b, "\nGenre: %s", strings.Join(p.Genre, ", "))
	}
	if len(p.Themes) > 0 {
		fmt.Fprintf(&b, "\nThemes: %s", strings.Join(p.Themes, ", "))
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", p.Description)
	}
	return b.String()
}

// keyCharacters 主角与反派优先，其余按原顺序补足
func keyCharacters(chars []models.Character, projectID string) []models.CharacterSummary {
	rank := func(r models.CharacterRole) int {
		switch r {
		case models.RoleProtagonist:
			return 0
		case models.RoleAntagonist:
			return 1
		default:
			return 2
		}
	}

	out := make([]models.CharacterSummary, 0, maxKeyCharacters)
	for tier := 0; tier <= 2 && len(out) < maxKeyCharacters; tier++ {
		for _, c := range chars {
			if c.ProjectID != projectID || rank(c.Role) != tier {
				continue
			}
			out = append(out, models.CharacterSummary{ID: c.ID, Name: c.Name, Role: c.Role, Traits: c.Traits})
			if len(out) == maxKeyCharacters {
				break
			}
		}
	}
	return out
}

func summarizePlotNode(snap models.Snapshot, n models.PlotNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", n.Type, n.Title)
	if n.Summary != "" {
		fmt.Fprintf(&b, ": %s", n.Summary)
	}
	if n.POVCharacterID != "" {
		for _, c := range snap.Characters {
			if c.ID == n.POVCharacterID {
				fmt.Fprintf(&b, "\nPOV: %s", c.Name)
				break
			}
		}
	}
	if n.LocationID != "" {
		for _, l := range snap.Locations {
			if l.ID == n.LocationID {
				fmt.Fprintf(&b, "\nLocation: %s", l.Name)
				break
			}
		}
	}
	if n.WordCount > 0 {
		fmt.Fprintf(&b, "\nWords: %d", n.WordCount)
	}
	return b.String()
}
