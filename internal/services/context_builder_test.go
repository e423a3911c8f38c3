package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/StoryPlanner/internal/models"
)

func TestBuildAssistantContext(t *testing.T) {
	f := newFixture(t)
	f.seed()

	ctx := BuildAssistantContext(f.store.State(), "p1", "n1")

	assert.Contains(t, ctx.ProjectSummary, "Title: Salt and Iron")
	assert.Contains(t, ctx.ProjectSummary, "Logline: A smuggler turns informant.")
	assert.Contains(t, ctx.ProjectSummary, "Genre: noir")
	require.Len(t, ctx.KeyCharacters, 2)
	assert.Equal(t, "Mara", ctx.KeyCharacters[0].Name)
	assert.Equal(t, "[scene] Handoff: Mara meets the buyer\nPOV: Mara\nLocation: The Docks\nWords: 420", ctx.CurrentPlotNodeSummary)
	assert.Equal(t, map[string]any{"year": 1923.0}, ctx.NamedVariables)
}

func TestKeyCharactersOrderAndLimit(t *testing.T) {
	f := newFixture(t)
	f.store.AddProject(models.Project{ID: "p1", Title: "Crowd", Status: models.ProjectPlanning})
	for i := 0; i < 10; i++ {
		f.store.AddCharacter(models.Character{ID: fmt.Sprintf("s%d", i), ProjectID: "p1", Name: fmt.Sprintf("Extra %d", i), Role: models.RoleSupporting})
	}
	f.store.AddCharacter(models.Character{ID: "villain", ProjectID: "p1", Name: "Villain", Role: models.RoleAntagonist})
	f.store.AddCharacter(models.Character{ID: "hero", ProjectID: "p1", Name: "Hero", Role: models.RoleProtagonist})
	f.store.AddCharacter(models.Character{ID: "elsewhere", ProjectID: "p2", Name: "Elsewhere", Role: models.RoleProtagonist})

	ctx := BuildAssistantContext(f.store.State(), "p1", "")

	require.Len(t, ctx.KeyCharacters, maxKeyCharacters)
	assert.Equal(t, "hero", ctx.KeyCharacters[0].ID)
	assert.Equal(t, "villain", ctx.KeyCharacters[1].ID)
	assert.Equal(t, "s0", ctx.KeyCharacters[2].ID)
	assert.Empty(t, ctx.CurrentPlotNodeSummary)
}

func TestBuildAssistantContextUnknownProject(t *testing.T) {
	f := newFixture(t)
	ctx := BuildAssistantContext(f.store.State(), "missing", "")
	assert.Empty(t, ctx.ProjectSummary)
	assert.NotNil(t, ctx.KeyCharacters)
	assert.NotNil(t, ctx.NamedVariables)
}
