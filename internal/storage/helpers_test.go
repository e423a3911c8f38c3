package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
)

// recordingKV 记录每一次写入，并可注入读写错误
type recordingKV struct {
	*MemoryStorage

	mu      sync.Mutex
	writes  [][]byte
	setErr  error
	getErr  error
	removed int
}

func newRecordingKV() *recordingKV {
	return &recordingKV{MemoryStorage: NewMemoryStorage()}
}

func (r *recordingKV) GetItem(key string) ([]byte, bool, error) {
	r.mu.Lock()
	err := r.getErr
	r.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return r.MemoryStorage.GetItem(key)
}

func (r *recordingKV) SetItem(key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.writes = append(r.writes, append([]byte(nil), value...))
	return r.MemoryStorage.SetItem(key, value)
}

func (r *recordingKV) RemoveItem(key string) error {
	r.mu.Lock()
	r.removed++
	r.mu.Unlock()
	return r.MemoryStorage.RemoveItem(key)
}

func (r *recordingKV) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes)
}

var errQuotaExceeded = errors.New("quota exceeded")

func sampleSnapshot(t *testing.T) models.Snapshot {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resolvedAt := now.Add(time.Hour)

	s := models.EmptySnapshot()
	s.Projects = []models.Project{{
		ID: "p1", Title: "The Long Night", Status: models.ProjectDrafting,
		Genre: []string{"fantasy"}, Themes: []string{"loss", "duty"},
		Logline: "A watchman must keep the lamps lit.", CreatedAt: now, UpdatedAt: now,
		Stats: models.ProjectStats{WordCount: 1200, SceneCount: 2},
	}}
	s.Characters = []models.Character{{
		ID: "c1", ProjectID: "p1", Name: "Ada", Role: models.RoleProtagonist,
		Traits:        []string{"stubborn"},
		Relationships: []models.CharacterRelationship{{CharacterID: "c2", Type: "sibling"}},
		CreatedAt:     now, UpdatedAt: now,
	}}
	s.Locations = []models.Location{{ID: "l1", ProjectID: "p1", Name: "Harbor", Type: "city", ImportantEvents: []string{}, CreatedAt: now, UpdatedAt: now}}
	s.Items = []models.StoryItem{{ID: "i1", ProjectID: "p1", Name: "Lamp", Importance: models.ImportanceMcGuffin, CreatedAt: now, UpdatedAt: now}}
	s.PlotNodes = []models.PlotNode{{
		ID: "n1", ProjectID: "p1", Type: models.PlotScene, Title: "Opening", Order: 1,
		POVCharacterID: "c1", LocationID: "l1", InvolvedCharacterIDs: []string{"c1"},
		ManuscriptContent: "It was dark.", WordCount: 3, CreatedAt: now, UpdatedAt: now,
	}}
	s.Variables = []models.StoryVariable{{
		ID: "v1", ProjectID: "p1", Key: "moon_phase", Label: "Moon phase", Type: models.VariableString,
		Value: "waning", Status: models.VariableLocked, CreatedAt: now, UpdatedAt: now,
	}}
	s.AiMessages = []models.AiMessage{{ID: "m1", ProjectID: "p1", Role: models.MessageUser, Content: "hi", CreatedAt: now}}
	s.ContinuityIssues = []models.ContinuityIssue{{
		ID: "x1", ProjectID: "p1", Type: "timeline", Severity: models.SeverityMajor, Description: "Two sunsets",
		RelatedEntityIDs: []string{"n1"}, Resolved: true, ResolvedAt: &resolvedAt, CreatedAt: now,
	}}
	s.UI = models.UIState{SelectedProjectID: "p1", SelectedPlotNodeID: "n1"}
	return s
}
