package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/StoryPlanner/internal/llm"
	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/storage"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/Corphon/StoryPlanner/internal/utils"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	kv      *storage.MemoryStorage
	durable *storage.DurableStore
	store   *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := storage.NewMemoryStorage()
	durable := storage.NewDurableStore(kv,
		storage.WithScheduler(storage.ImmediateScheduler{}),
		storage.WithLogger(utils.NewNopLogger()))
	st := store.New(durable,
		store.WithLogger(utils.NewNopLogger()),
		store.WithClock(func() time.Time { return testNow }))
	return &fixture{kv: kv, durable: durable, store: st}
}

func (f *fixture) seed() {
	f.store.AddProject(models.Project{
		ID: "p1", Title: "Salt and Iron", Status: models.ProjectDrafting, Logline: "A smuggler turns informant.",
		Genre: []string{"noir"}, Themes: []string{"betrayal"},
	})
	f.store.AddCharacter(models.Character{ID: "c1", ProjectID: "p1", Name: "Mara", Role: models.RoleProtagonist, Traits: []string{"wary"}})
	f.store.AddCharacter(models.Character{ID: "c2", ProjectID: "p1", Name: "Voss", Role: models.RoleAntagonist})
	f.store.AddLocation(models.Location{ID: "l1", ProjectID: "p1", Name: "The Docks"})
	f.store.AddPlotNode(models.PlotNode{
		ID: "n1", ProjectID: "p1", Type: models.PlotScene, Title: "Handoff", Summary: "Mara meets the buyer",
		POVCharacterID: "c1", LocationID: "l1", WordCount: 420,
	})
	f.store.AddVariable(models.StoryVariable{ID: "v1", ProjectID: "p1", Key: "year", Type: models.VariableNumber, Value: 1923.0})
}

func (f *fixture) exportService() *ExportService {
	svc := NewExportService(f.store, f.durable, utils.NewNopLogger())
	svc.nowFunc = func() time.Time { return testNow }
	return svc
}

// fakeClient 记录请求并返回预设响应
type fakeClient struct {
	mu   sync.Mutex
	reqs []models.AssistantRequest
	resp *models.AssistantResponse
	err  error
}

func (c *fakeClient) Ask(_ context.Context, req models.AssistantRequest) (*models.AssistantResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return nil, c.err
	}
	out := *c.resp
	return &out, nil
}

// fakeProvider 实现 llm.Provider
type fakeProvider struct {
	last llm.CompletionRequest
	text string
	err  error
}

func (p *fakeProvider) Initialize(map[string]string) error { return nil }
func (p *fakeProvider) GetName() string                    { return "fake" }
func (p *fakeProvider) GetSupportedModels() []string       { return []string{"fake-1"} }
func (p *fakeProvider) CompleteText(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.text}, nil
}

var errNetwork = errors.New("connection reset by peer")
