package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/aihub/ros-rag-go/internal/config"
	"github.com/aihub/ros-rag-go/internal/di"
	"github.com/aihub/ros-rag-go/internal/knowledge"
	"github.com/aihub/ros-rag-go/internal/logger"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	Container    *dig.Container
	cleanupTasks []func() error
}

// Init bootstraps configuration, logger and the dependency container shared by
// the Beego application and the ingestion command.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	container, err := di.BuildContainer()
	if err != nil {
		return nil, err
	}
	di.SetGlobal(container)

	app := &App{Container: container}

	// Milvus is a hard dependency for serving; log readiness but let the
	// process come up so /health can report the real state.
	if err := container.Invoke(func(store knowledge.VectorStore) {
		if store.Ready() {
			logger.Info("Milvus connection established")
		} else {
			logger.Warn("Milvus not reachable at startup")
		}
	}); err != nil {
		return nil, err
	}

	cfg := config.GetAppConfig()
	logger.Info("application bootstrapped",
		zap.String("embedding_provider", cfg.Knowledge.Embedding.Provider),
		zap.String("embedding_model", cfg.Knowledge.Embedding.Model),
		zap.Int("dimensions", cfg.Knowledge.Embedding.Dimensions),
		zap.String("policy", cfg.Chat.Policy))

	return app, nil
}

// Shutdown flushes logs and closes resources gracefully.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}
	logger.Sync()
}
