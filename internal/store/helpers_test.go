package store

import (
	"sync"
	"testing"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/utils"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// memoryBackend 记录每一次保存请求的后端
type memoryBackend struct {
	mu     sync.Mutex
	loaded *models.Snapshot
	saves  []models.Snapshot
}

func (b *memoryBackend) Load() (*models.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded == nil {
		return nil, false
	}
	snap := *b.loaded
	return &snap, true
}

func (b *memoryBackend) Save(snap models.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves = append(b.saves, snap)
}

func (b *memoryBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saves)
}

func (b *memoryBackend) lastSave() models.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves[len(b.saves)-1]
}

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	return New(backend, WithLogger(utils.NewNopLogger()), WithClock(func() time.Time { return fixedNow }))
}

func project(id string) models.Project {
	return models.Project{
		ID: id, Title: "Project " + id, Status: models.ProjectPlanning,
		Genre: []string{"mystery"}, Themes: []string{}, CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
}

func character(id, projectID string, rels ...models.CharacterRelationship) models.Character {
	return models.Character{
		ID: id, ProjectID: projectID, Name: "Character " + id, Role: models.RoleSupporting,
		Traits: []string{"curious"}, Relationships: rels, CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
}

func location(id, projectID string) models.Location {
	return models.Location{ID: id, ProjectID: projectID, Name: "Location " + id, Type: "city", ImportantEvents: []string{}}
}

func plotNode(id, projectID, parentID string, typ models.PlotNodeType, order int) models.PlotNode {
	return models.PlotNode{ID: id, ProjectID: projectID, ParentID: parentID, Type: typ, Title: "Node " + id, Order: order}
}

func relTo(id string) models.CharacterRelationship {
	return models.CharacterRelationship{CharacterID: id, Type: "ally"}
}

// counter 统计监听器被调用的次数并保存最后一次快照
type counter struct {
	mu   sync.Mutex
	n    int
	last models.Snapshot
}

func (c *counter) listener(snap models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	c.last = snap
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
