package controllers

import (
	"github.com/aihub/ros-rag-go/internal/di"
	"github.com/aihub/ros-rag-go/internal/knowledge"
	"github.com/aihub/ros-rag-go/internal/llm"
)

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
	embedder knowledge.Embedder
	store    knowledge.VectorStore
	chat     llm.ChatClient
}

func (c *HealthController) Prepare() {
	_ = di.Invoke(func(embedder knowledge.Embedder, store knowledge.VectorStore, chat llm.ChatClient) {
		c.embedder = embedder
		c.store = store
		c.chat = chat
	})
}

// Health 报告依赖组件的就绪状态
func (c *HealthController) Health() {
	status := map[string]interface{}{
		"status":   "ok",
		"embedder": c.embedder != nil && c.embedder.Ready(),
		"milvus":   c.store != nil && c.store.Ready(),
		"chat":     c.chat != nil && c.chat.Ready(),
	}
	c.JSONSuccess(status)
}
