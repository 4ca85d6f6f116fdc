package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/aihub/ros-rag-go/app/bootstrap"
	"github.com/aihub/ros-rag-go/internal/config"
	"github.com/aihub/ros-rag-go/internal/knowledge"
	"github.com/aihub/ros-rag-go/internal/logger"
)

// 离线摄取命令：解析知识库文档、计算向量并全量重建Milvus集合
// 摄取是维护操作，不应与在线服务并发执行
func main() {
	milvusAddr := flag.String("milvus-addr", "", "Milvus服务地址，默认取配置")
	knowledgeFile := flag.String("knowledge-file", "", "知识库文件路径，默认取配置")
	flag.Parse()

	if *milvusAddr != "" {
		os.Setenv("MILVUS_ADDRESS", *milvusAddr)
	}

	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap: %v", err)
	}
	defer app.Shutdown()

	path := *knowledgeFile
	if path == "" {
		path = config.GetAppConfig().Knowledge.File
	}

	err = app.Container.Invoke(func(ingestor *knowledge.Ingestor) error {
		report, err := ingestor.Run(context.Background(), path)
		if err != nil {
			if report != nil {
				logger.Error("ingestion aborted",
					zap.Int("attempted", report.Attempted),
					zap.Int("succeeded", report.Succeeded),
					zap.Int("failed", report.Failed),
					zap.Error(err))
			}
			return err
		}
		logger.Info("knowledge base initialized",
			zap.String("file", path),
			zap.Int("attempted", report.Attempted),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed))
		return nil
	})
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}
}
