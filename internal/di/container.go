package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/aihub/ros-rag-go/internal/config"
	"github.com/aihub/ros-rag-go/internal/knowledge"
	"github.com/aihub/ros-rag-go/internal/llm"
	"github.com/aihub/ros-rag-go/internal/logger"
	"github.com/aihub/ros-rag-go/internal/services"
)

var globalContainer *dig.Container

// BuildContainer 注册所有依赖提供者
// 嵌入客户端、Milvus连接与集合句柄都是进程级共享资源，只构造一次
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		func() (*config.Config, error) {
			cfg := config.GetAppConfig()
			if cfg == nil {
				return nil, fmt.Errorf("config not loaded")
			}
			return cfg, nil
		},
		func() *zap.Logger {
			return logger.GetLogger()
		},
		// 嵌入提供方按配置二选一，契约完全一致
		func(cfg *config.Config) (knowledge.Embedder, error) {
			switch cfg.Knowledge.Embedding.Provider {
			case "local":
				return knowledge.NewLocalEmbedder(cfg.Knowledge.Embedding), nil
			case "openai":
				return knowledge.NewOpenAIEmbedder(cfg.Knowledge.Embedding), nil
			default:
				return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Knowledge.Embedding.Provider)
			}
		},
		// 集合Schema的维度从嵌入配置派生，换提供方必须全量重新摄取
		func(cfg *config.Config, embedder knowledge.Embedder) (knowledge.VectorStore, error) {
			return knowledge.NewMilvusStore(knowledge.MilvusOptions{
				Address:    cfg.Knowledge.Milvus.Address,
				Username:   cfg.Knowledge.Milvus.Username,
				Password:   cfg.Knowledge.Milvus.Password,
				Database:   cfg.Knowledge.Milvus.Database,
				Collection: cfg.Knowledge.Milvus.Collection,
				UseTLS:     cfg.Knowledge.Milvus.TLS,
				VectorSize: embedder.Dimensions(),
				MetricType: cfg.Knowledge.Milvus.MetricType,
			})
		},
		func(cfg *config.Config, embedder knowledge.Embedder, store knowledge.VectorStore, log *zap.Logger) *knowledge.Retriever {
			return knowledge.NewRetriever(embedder, store, knowledge.SearchParams{
				NProbe: cfg.Knowledge.Retrieval.NProbe,
			}, log)
		},
		func(r *knowledge.Retriever) services.Retriever {
			return r
		},
		func(cfg *config.Config, embedder knowledge.Embedder, store knowledge.VectorStore, log *zap.Logger) *knowledge.Ingestor {
			return knowledge.NewIngestor(embedder, store, knowledge.IndexConfig{
				MetricType: cfg.Knowledge.Milvus.MetricType,
				IndexType:  cfg.Knowledge.Milvus.IndexType,
				NList:      cfg.Knowledge.Milvus.NList,
			}, log)
		},
		func(cfg *config.Config) llm.ChatClient {
			return llm.NewOpenAIChatClient(cfg.Chat)
		},
		func() *services.MetricsService {
			return services.NewMetricsService(prometheus.DefaultRegisterer)
		},
		services.NewAnswerService,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}

// SetGlobal 设置全局容器，供beego控制器在Prepare阶段解析依赖
func SetGlobal(container *dig.Container) {
	globalContainer = container
}

// Invoke 在全局容器上解析依赖
func Invoke(fn interface{}) error {
	if globalContainer == nil {
		return fmt.Errorf("di container not initialized")
	}
	return globalContainer.Invoke(fn)
}
