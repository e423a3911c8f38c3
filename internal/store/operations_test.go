package store

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/StoryPlanner/internal/models"
)

func TestContinuityIssueResolvedAtInvariant(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddContinuityIssue(models.ContinuityIssue{ID: "x1", ProjectID: "p1", Severity: models.SeverityMajor, Resolved: true})
	stale := fixedNow.Add(-1)
	s.AddContinuityIssue(models.ContinuityIssue{ID: "x2", ProjectID: "p1", Severity: models.SeverityMinor, ResolvedAt: &stale})

	x1, _ := s.ContinuityIssue("x1")
	require.NotNil(t, x1.ResolvedAt)
	assert.True(t, x1.ResolvedAt.Equal(fixedNow))
	x2, _ := s.ContinuityIssue("x2")
	assert.Nil(t, x2.ResolvedAt)

	require.NoError(t, s.UpdateContinuityIssue("x1", Set("resolved", false)))
	x1, _ = s.ContinuityIssue("x1")
	assert.False(t, x1.Resolved)
	assert.Nil(t, x1.ResolvedAt)

	resolved, ok := s.ResolveContinuityIssue("x2")
	require.True(t, ok)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)

	reopened, ok := s.ReopenContinuityIssue("x2")
	require.True(t, ok)
	assert.False(t, reopened.Resolved)
	assert.Nil(t, reopened.ResolvedAt)

	_, ok = s.ResolveContinuityIssue("missing")
	assert.False(t, ok)
}

func TestIssuesByProject(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddContinuityIssue(models.ContinuityIssue{ID: "open", ProjectID: "p1"})
	s.AddContinuityIssue(models.ContinuityIssue{ID: "done", ProjectID: "p1", Resolved: true})
	s.AddContinuityIssue(models.ContinuityIssue{ID: "other", ProjectID: "p2"})

	assert.Equal(t, []string{"open"}, ids(s.IssuesByProject("p1", false)))
	assert.Equal(t, []string{"open", "done"}, ids(s.IssuesByProject("p1", true)))
	assert.Len(t, s.IssuesByProject("", true), 3)
}

func TestSuggestedVariables(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddSuggestedVariables(
		models.StoryVariable{ID: "sv1", ProjectID: "p1", Key: "magic_cost", Type: models.VariableRule, Status: models.VariableTentative},
		models.StoryVariable{ID: "sv2", ProjectID: "p1", Key: "year", Type: models.VariableNumber},
	)
	assert.Len(t, s.SuggestedVariablesByProject("p1"), 2)

	accepted, ok := s.AcceptSuggestedVariable("sv1")
	require.True(t, ok)
	assert.Equal(t, models.VariableConfirmed, accepted.Status)
	assert.Equal(t, fixedNow, accepted.UpdatedAt)

	v, ok := s.Variable("sv1")
	require.True(t, ok)
	assert.Equal(t, "magic_cost", v.Key)
	_, ok = s.SuggestedVariable("sv1")
	assert.False(t, ok)

	assert.True(t, s.DismissSuggestedVariable("sv2"))
	assert.False(t, s.DismissSuggestedVariable("sv2"))
	assert.Empty(t, s.SuggestedVariablesByProject("p1"))

	_, ok = s.AcceptSuggestedVariable("missing")
	assert.False(t, ok)
}

func TestMergeSnapshotKeepsExisting(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddProject(project("p1"))

	incoming := project("p1")
	incoming.Title = "Imported"
	counts := s.MergeSnapshot(models.ExportData{
		Projects:   []models.Project{incoming, project("p2"), project("p2")},
		Characters: []models.Character{character("c1", "p2")},
	})

	assert.Equal(t, 1, counts["projects"])
	assert.Equal(t, 1, counts["characters"])
	assert.Equal(t, 0, counts["locations"])

	p1, _ := s.Project("p1")
	assert.Equal(t, "Project p1", p1.Title)
	assert.Equal(t, []string{"p1", "p2"}, ids(s.Projects()))
}

func TestUpdateManuscriptAndStats(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddProject(project("p1"))
	s.AddCharacter(character("c1", "p1"))
	s.AddCharacter(character("c2", "p2"))
	s.AddPlotNode(plotNode("ch1", "p1", "", models.PlotChapter, 1))
	s.AddPlotNode(plotNode("sc1", "p1", "ch1", models.PlotScene, 1))
	unsaved := plotNode("sc2", "p1", "ch1", models.PlotScene, 2)
	unsaved.ManuscriptContent = "two words"
	s.AddPlotNode(unsaved)

	node, ok := s.UpdateManuscript("sc1", "The lamps  went out\none by one.")
	require.True(t, ok)
	assert.Equal(t, 7, node.WordCount)
	assert.Equal(t, fixedNow, node.UpdatedAt)

	stats, ok := s.RecomputeProjectStats("p1")
	require.True(t, ok)
	assert.Equal(t, models.ProjectStats{WordCount: 9, SceneCount: 2, ChapterCount: 1, CharacterCount: 1}, stats)

	p1, _ := s.Project("p1")
	assert.Equal(t, stats, p1.Stats)

	_, ok = s.UpdateManuscript("missing", "x")
	assert.False(t, ok)
	_, ok = s.RecomputeProjectStats("missing")
	assert.False(t, ok)
}

func TestPlotChildrenStableOrder(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddPlotNode(plotNode("b", "p1", "", models.PlotAct, 2))
	s.AddPlotNode(plotNode("a", "p1", "", models.PlotAct, 1))
	s.AddPlotNode(plotNode("c", "p1", "", models.PlotAct, 2))
	s.AddPlotNode(plotNode("x", "p2", "", models.PlotAct, 0))
	s.AddPlotNode(plotNode("a1", "p1", "a", models.PlotChapter, 1))

	assert.Equal(t, []string{"a", "b", "c"}, ids(s.PlotChildren("p1", "")))
	assert.Equal(t, []string{"a1"}, ids(s.PlotChildren("p1", "a")))
	assert.Empty(t, s.PlotDescendants("missing"))
}

func TestPlotDescendantsTerminatesOnCycle(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddPlotNode(plotNode("a", "p1", "b", models.PlotArc, 1))
	s.AddPlotNode(plotNode("b", "p1", "a", models.PlotArc, 1))

	assert.Equal(t, []string{"b"}, ids(s.PlotDescendants("a")))
}

func TestClearAiMessages(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddAiMessage(models.AiMessage{ID: "m1", ProjectID: "p1", Role: models.MessageUser})
	s.AddAiMessage(models.AiMessage{ID: "m2", ProjectID: "p2", Role: models.MessageUser})
	s.AddAiMessage(models.AiMessage{ID: "m3", ProjectID: "p1", Role: models.MessageAssistant})

	assert.Equal(t, []string{"m1", "m3"}, ids(s.AiMessagesByProject("p1")))
	assert.Equal(t, 2, s.ClearAiMessages("p1"))
	assert.Empty(t, s.AiMessagesByProject("p1"))
	assert.Len(t, s.AiMessagesByProject("p2"), 1)
}

func TestDeleteOtherEntitiesClearsEntitySelection(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddItem(models.StoryItem{ID: "i1", ProjectID: "p1"})
	s.AddVariable(models.StoryVariable{ID: "v1", ProjectID: "p1", Status: models.VariableLocked})
	s.AddContinuityIssue(models.ContinuityIssue{ID: "x1", ProjectID: "p1"})

	for _, tc := range []struct {
		id  string
		del func(string)
	}{
		{"i1", s.DeleteItem},
		{"v1", s.DeleteVariable},
		{"x1", s.DeleteContinuityIssue},
	} {
		s.SetSelectedEntityID(tc.id)
		tc.del(tc.id)
		assert.Empty(t, s.Selection().SelectedEntityID, tc.id)
	}
	assert.Zero(t, s.Stats()["items"]+s.Stats()["variables"]+s.Stats()["continuityIssues"])
}

func TestReloadRehydratesWithoutPersisting(t *testing.T) {
	backend := &memoryBackend{}
	s := newTestStore(t, backend)
	s.AddProject(project("p1"))
	saves := backend.saveCount()

	loaded := models.Snapshot{Projects: []models.Project{project("p9")}}
	backend.mu.Lock()
	backend.loaded = &loaded
	backend.mu.Unlock()

	var c counter
	s.Subscribe(c.listener)
	s.Reload()

	assert.Equal(t, []string{"p9"}, ids(s.Projects()))
	assert.Equal(t, 1, c.count())
	assert.Equal(t, saves, backend.saveCount())
}

func TestByProjectSelectors(t *testing.T) {
	s := newTestStore(t, &memoryBackend{})
	s.AddCharacter(character("c1", "p1"))
	s.AddCharacter(character("c2", "p2"))
	s.AddLocation(location("l1", "p1"))
	s.AddItem(models.StoryItem{ID: "i1", ProjectID: "p2"})
	s.AddVariable(models.StoryVariable{ID: "v1", ProjectID: "p1"})

	assert.Equal(t, []string{"c1"}, ids(s.CharactersByProject("p1")))
	assert.Equal(t, []string{"c1", "c2"}, ids(s.CharactersByProject("")))
	assert.Equal(t, []string{"l1"}, ids(s.LocationsByProject("p1")))
	assert.Empty(t, s.ItemsByProject("p1"))
	assert.Equal(t, []string{"v1"}, ids(s.VariablesByProject("p1")))
	assert.Equal(t, 1, s.CharacterCount("p2"))
	_, ok := s.SelectedProject()
	assert.False(t, ok)
}

func TestPatchBuildersDoNotShareState(t *testing.T) {
	base := Set("name", "a")
	derived := base.With("role", "other").AppendTo("traits", "x")

	assert.Len(t, base.Set, 1)
	assert.Nil(t, base.Append)
	assert.Len(t, derived.Set, 2)
	assert.Equal(t, []any{"x"}, derived.Append["traits"])
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, derived.IsEmpty())
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	backend := &memoryBackend{}
	s := newTestStore(t, backend)

	var wg sync.WaitGroup
	var inserted atomic.Int64
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.InsertProject(project("p1")) {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, inserted.Load())
	assert.Equal(t, 1, s.ProjectCount())
	assert.Equal(t, 1, backend.saveCount(), "rejected inserts do not persist")

	assert.True(t, s.InsertContinuityIssue(models.ContinuityIssue{ID: "x1", ProjectID: "p1", Resolved: true}))
	assert.False(t, s.InsertContinuityIssue(models.ContinuityIssue{ID: "x1", ProjectID: "p1"}))
	x1, _ := s.ContinuityIssue("x1")
	require.NotNil(t, x1.ResolvedAt)
}
