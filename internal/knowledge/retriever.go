package knowledge

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/aihub/ros-rag-go/internal/errors"
)

// DefaultTopK 默认返回结果数量
const DefaultTopK = 3

// Retriever 语义检索引擎：向量化查询后在向量存储中做top-k最近邻检索
// 不做缓存：每次调用都重新向量化并检索
type Retriever struct {
	embedder Embedder
	store    VectorStore
	params   SearchParams
	logger   *zap.Logger
}

// NewRetriever 创建检索引擎
// params是部署常量，调用方不可控制
func NewRetriever(embedder Embedder, store VectorStore, params SearchParams, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		params:   params,
		logger:   logger,
	}
}

// Retrieve 检索与查询最相关的知识片段
// 失败时由调用方决定整轮失败还是降级为无依据回答
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.NewRetrievalError("failed to embed query").WithCause(err)
	}

	snippets, err := r.store.Search(ctx, embedding, topK, r.params)
	if err != nil {
		return nil, apperrors.NewRetrievalError("knowledge search failed").WithCause(err)
	}

	r.logger.Debug("knowledge retrieved",
		zap.String("query", query),
		zap.Int("top_k", topK),
		zap.Int("results", len(snippets)))

	return snippets, nil
}
