package knowledge

import (
	"context"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aihub/ros-rag-go/internal/config"
	apperrors "github.com/aihub/ros-rag-go/internal/errors"
)

// Embedder 定义文本向量化接口
// 本地与远端实现共享同一契约，调用方不感知差异
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Ready() bool
}

// OpenAIEmbedder 使用OpenAI兼容的Embedding API
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	dimensions    int
	maxInputChars int
	limiter       sync.Mutex
}

// NewOpenAIEmbedder 创建远端嵌入向量生成器
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client:        openai.NewClientWithConfig(clientConfig),
		model:         cfg.Model,
		dimensions:    cfg.Dimensions,
		maxInputChars: cfg.MaxInputChars,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewEmbeddingError("text is empty")
	}
	if e.maxInputChars > 0 && len([]rune(text)) > e.maxInputChars {
		return nil, apperrors.NewEmbeddingError("text exceeds embedding input limit")
	}

	e.limiter.Lock()
	defer e.limiter.Unlock()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, apperrors.NewEmbeddingError("embedding request failed").WithCause(err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewEmbeddingError("embedding response empty")
	}

	embedding := resp.Data[0].Embedding
	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
