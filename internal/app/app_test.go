package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/StoryPlanner/internal/config"
	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            "0",
		DataDir:         t.TempDir(),
		LogLevel:        "error",
		StorageDriver:   driver,
		StorageKey:      config.DefaultStorageKey,
		PersistDebounce: time.Hour,
		LLMProvider:     "anthropic",
	}
}

// mockServer 阻塞到 Shutdown 被调用
type mockServer struct {
	once           sync.Once
	stopped        chan struct{}
	ShutdownCalled bool
}

func newMockServer() *mockServer {
	return &mockServer{stopped: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	<-m.stopped
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.once.Do(func() {
		m.ShutdownCalled = true
		close(m.stopped)
	})
	return nil
}

func TestNewServesState(t *testing.T) {
	a, err := New(testConfig(t, config.StorageMemory))
	require.NoError(t, err)
	defer a.Close()

	a.Store.AddProject(models.Project{ID: "p1", Title: "Salt and Iron", Status: models.ProjectDrafting})

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Salt and Iron"`)
}

func TestRunFlushesPendingWriteOnShutdown(t *testing.T) {
	cfg := testConfig(t, config.StorageFile)

	a, err := New(cfg)
	require.NoError(t, err)
	server := newMockServer()
	a.server = server

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	a.Store.AddProject(models.Project{ID: "p1", Title: "Salt and Iron", Status: models.ProjectDrafting})
	assert.True(t, a.Durable.HasPending(), "write is debounced")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, server.ShutdownCalled)
	assert.False(t, a.Durable.HasPending())

	restarted, err := New(cfg)
	require.NoError(t, err)
	defer restarted.Close()
	p, ok := restarted.Store.Project("p1")
	require.True(t, ok)
	assert.Equal(t, "Salt and Iron", p.Title)
}

func TestSQLiteDriverSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, config.StorageSQLite)
	cfg.PersistDebounce = 0

	a, err := New(cfg)
	require.NoError(t, err)
	a.Store.AddProject(models.Project{ID: "p1", Title: "Salt and Iron", Status: models.ProjectPlanning})
	a.Close()

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, 1, b.Store.ProjectCount())
}

func TestOpenStorageDrivers(t *testing.T) {
	for _, driver := range []string{config.StorageMemory, config.StorageFile, config.StorageSQLite} {
		t.Run(driver, func(t *testing.T) {
			kv, closeKV, err := OpenStorage(testConfig(t, driver))
			require.NoError(t, err)
			defer closeKV()

			require.NoError(t, kv.SetItem("k", []byte(`{"a":1}`)))
			got, ok, err := kv.GetItem("k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `{"a":1}`, string(got))
		})
	}
}

func TestUnknownProviderDisablesAssistant(t *testing.T) {
	cfg := testConfig(t, config.StorageMemory)
	cfg.LLMProvider = "carrier-pigeon"

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	a.Store.AddProject(models.Project{ID: "p1", Title: "Salt and Iron", Status: models.ProjectPlanning})

	req := httptest.NewRequest(http.MethodPost, "/api/projects/p1/assistant", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
