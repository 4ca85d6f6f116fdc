package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/aihub/ros-rag-go/app/bootstrap"
	"github.com/aihub/ros-rag-go/app/router"
	"github.com/aihub/ros-rag-go/internal/config"
	"github.com/aihub/ros-rag-go/internal/knowledge"
	"github.com/aihub/ros-rag-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	// 启动时校验集合并载入内存，失败只告警：
	// 服务照常启动，/health会暴露真实状态，摄取完成后重启即可恢复
	if err := app.Container.Invoke(func(store knowledge.VectorStore) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.EnsureCollection(ctx); err != nil {
			logger.Warn("knowledge collection not available", zap.Error(err))
			return
		}
		if err := store.Load(ctx); err != nil {
			logger.Warn("knowledge collection not loaded, run ingestion first", zap.Error(err))
		}
	}); err != nil {
		log.Fatalf("failed to resolve vector store: %v", err)
	}

	router.Init()

	web.BConfig.AppName = "ROS2 Knowledge Assistant"
	web.BConfig.CopyRequestBody = true
	if port, err := strconv.Atoi(config.GetAppConfig().Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("🚀 Starting ROS2 knowledge assistant", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
