package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/services"
	"github.com/Corphon/StoryPlanner/internal/storage"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/Corphon/StoryPlanner/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	kv      *storage.MemoryStorage
	durable *storage.DurableStore
	store   *store.Store
	handler *Handler
	router  *gin.Engine
}

func newTestServer(t *testing.T, client services.AssistantClient) *testServer {
	t.Helper()

	logger := utils.NewNopLogger()
	metrics := utils.NewMetricsCollector()
	kv := storage.NewMemoryStorage()
	durable := storage.NewDurableStore(kv,
		storage.WithScheduler(storage.ImmediateScheduler{}),
		storage.WithLogger(logger))
	st := store.New(durable,
		store.WithLogger(logger),
		store.WithMetrics(metrics),
		store.WithClock(func() time.Time { return testNow }))

	export := services.NewExportService(st, durable, logger)
	assistant := services.NewAssistantService(st, client, logger, metrics)

	h := NewHandler(st, export, assistant, logger, metrics)
	h.now = func() time.Time { return testNow }
	t.Cleanup(h.Close)

	return &testServer{
		kv:      kv,
		durable: durable,
		store:   st,
		handler: h,
		router:  SetupRouter(h, RouterOptions{}),
	}
}

// envelope 解码后的响应，data 延迟解析
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"requestId"`
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	case []byte:
		r = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decode(t, rec)
	require.True(t, env.Success, rec.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}

// seed 通过HTTP创建一个项目及其角色、地点
func (s *testServer) seed(t *testing.T) {
	t.Helper()
	requireStatus(t, s.do(t, http.MethodPost, "/api/projects", map[string]any{
		"id": "p1", "title": "Salt and Iron", "status": "drafting",
	}), http.StatusCreated)
	requireStatus(t, s.do(t, http.MethodPost, "/api/characters", map[string]any{
		"id": "c1", "projectId": "p1", "name": "Mara", "role": "protagonist",
	}), http.StatusCreated)
	requireStatus(t, s.do(t, http.MethodPost, "/api/characters", map[string]any{
		"id": "c2", "projectId": "p1", "name": "Voss", "role": "antagonist",
		"relationships": []map[string]any{{"characterId": "c1", "type": "rival"}},
	}), http.StatusCreated)
	requireStatus(t, s.do(t, http.MethodPost, "/api/locations", map[string]any{
		"id": "l1", "projectId": "p1", "name": "The Docks",
	}), http.StatusCreated)
}

// fakeAssistant 返回预设回复或错误
type fakeAssistant struct {
	mu   sync.Mutex
	reqs []models.AssistantRequest
	resp models.AssistantResponse
	err  error
}

func (f *fakeAssistant) Ask(_ context.Context, req models.AssistantRequest) (*models.AssistantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	out := f.resp
	return &out, nil
}

func (f *fakeAssistant) lastRequest() models.AssistantRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func newJSONRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
