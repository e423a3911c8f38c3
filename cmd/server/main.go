// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Corphon/StoryPlanner/internal/app"
	"github.com/Corphon/StoryPlanner/internal/config"
	"github.com/Corphon/StoryPlanner/internal/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("🚀 启动 StoryPlanner 服务器...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 配置加载完成，端口: %s，存储: %s", cfg.Port, cfg.StorageDriver)

	// 2. 初始化日志
	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "server.log"), utils.ParseLogLevel(cfg.LogLevel)); err != nil {
		log.Printf("⚠️ 初始化日志文件失败，仅输出到控制台: %v", err)
	}
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. 组装应用
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	log.Printf("🔗 访问地址: http://localhost:%s", cfg.Port)

	// 4. 运行直到收到中断信号，关闭时写入待保存的状态
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("❌ 服务器异常退出: %v", err)
	}
	log.Println("✅ 服务器优雅关闭完成")
}
