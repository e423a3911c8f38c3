// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Corphon/StoryPlanner/internal/api"
	"github.com/Corphon/StoryPlanner/internal/config"
	"github.com/Corphon/StoryPlanner/internal/llm"
	_ "github.com/Corphon/StoryPlanner/internal/llm/providers/anthropic"
	"github.com/Corphon/StoryPlanner/internal/services"
	"github.com/Corphon/StoryPlanner/internal/storage"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/Corphon/StoryPlanner/internal/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// httpServer 便于测试时替换真实的 http.Server
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 持有一次进程运行所需的全部组件
type App struct {
	Config    *config.Config
	Logger    *utils.Logger
	Metrics   *utils.MetricsCollector
	Durable   *storage.DurableStore
	Store     *store.Store
	Export    *services.ExportService
	Assistant *services.AssistantService
	Handler   *api.Handler
	Router    *gin.Engine

	server  httpServer
	closeKV func() error
}

// OpenStorage 按配置打开键值存储后端
func OpenStorage(cfg *config.Config) (storage.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StorageDriver {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), noop, nil
	case config.StorageSQLite:
		db, err := storage.OpenSQLiteStorage(filepath.Join(cfg.DataDir, "story-planner.db"))
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		fs, err := storage.NewFileStorage(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil
	}
}

// OpenDurableStore 打开存储后端并创建带防抖的持久化槽位
func OpenDurableStore(cfg *config.Config, logger *utils.Logger, metrics *utils.MetricsCollector) (*storage.DurableStore, func() error, error) {
	kv, closeKV, err := OpenStorage(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("打开存储失败: %w", err)
	}

	var scheduler storage.Scheduler = storage.NewDebouncer(cfg.PersistDebounce)
	if cfg.PersistDebounce == 0 {
		scheduler = storage.ImmediateScheduler{}
	}

	durable := storage.NewDurableStore(kv,
		storage.WithKey(cfg.StorageKey),
		storage.WithScheduler(scheduler),
		storage.WithLogger(logger),
		storage.WithMetrics(metrics))
	return durable, closeKV, nil
}

// New 按 配置 -> 存储 -> 状态 -> 服务 -> 路由 的顺序组装应用
func New(cfg *config.Config) (*App, error) {
	logger := utils.GetLogger()
	logger.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	metrics := utils.NewMetricsCollector()

	durable, closeKV, err := OpenDurableStore(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	st := store.New(durable, store.WithLogger(logger), store.WithMetrics(metrics))

	export := services.NewExportService(st, durable, logger)
	assistant := services.NewAssistantService(st, newAssistantClient(cfg, logger), logger, metrics)

	handler := api.NewHandler(st, export, assistant, logger, metrics)
	router := api.SetupRouter(handler, api.RouterOptions{
		DebugMode:          cfg.DebugMode,
		AssistantRateLimit: cfg.AssistantRateLimit,
	})

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Durable:   durable,
		Store:     st,
		Export:    export,
		Assistant: assistant,
		Handler:   handler,
		Router:    router,
		closeKV:   closeKV,
	}
	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("应用初始化完成", map[string]interface{}{
		"storage":  cfg.StorageDriver,
		"key":      cfg.StorageKey,
		"debounce": cfg.PersistDebounce.String(),
		"projects": st.ProjectCount(),
	})
	return a, nil
}

// newAssistantClient 创建AI客户端；提供者不可用时返回 nil，助手接口将返回服务不可用
func newAssistantClient(cfg *config.Config, logger *utils.Logger) services.AssistantClient {
	provider, err := llm.GetProvider(cfg.LLMProvider, map[string]string{
		"api_key":       cfg.LLMAPIKey,
		"default_model": cfg.LLMModel,
		"base_url":      cfg.LLMBaseURL,
	})
	if err != nil {
		logger.Warn("AI提供者不可用，助手功能已禁用", map[string]interface{}{
			"provider":  cfg.LLMProvider,
			"available": llm.ListProviders(),
			"error":     err,
		})
		return nil
	}
	return services.NewLLMAssistantClient(provider, cfg.LLMModel)
}

// Run 启动HTTP服务，ctx 结束后优雅关闭并写入待保存的状态
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("HTTP服务启动", map[string]interface{}{"port": a.Config.Port})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务异常退出: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("正在关闭服务器...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.Close()
	return err
}

// Close 断开推送连接，写入待保存的快照并关闭存储
func (a *App) Close() {
	a.Handler.Close()
	a.Durable.Close()
	if a.closeKV != nil {
		if err := a.closeKV(); err != nil {
			a.Logger.Error("关闭存储失败", map[string]interface{}{"error": err})
		}
		a.closeKV = nil
	}
	a.Logger.Sync()
}
