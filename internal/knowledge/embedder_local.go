package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aihub/ros-rag-go/internal/config"
	apperrors "github.com/aihub/ros-rag-go/internal/errors"
)

// LocalEmbedder 调用本地部署的多语言句向量编码服务
// 服务暴露text-embeddings-inference风格的 /embed 接口
type LocalEmbedder struct {
	baseURL       string
	model         string
	dimensions    int
	maxInputChars int
	client        *http.Client
	limiter       sync.Mutex
}

type localEmbedRequest struct {
	Inputs    string `json:"inputs"`
	Normalize bool   `json:"normalize"`
}

// NewLocalEmbedder 创建本地编码器客户端
func NewLocalEmbedder(cfg config.EmbeddingConfig) *LocalEmbedder {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &LocalEmbedder{
		baseURL:       baseURL,
		model:         cfg.Model,
		dimensions:    cfg.Dimensions,
		maxInputChars: cfg.MaxInputChars,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewEmbeddingError("text is empty")
	}
	if e.maxInputChars > 0 && len([]rune(text)) > e.maxInputChars {
		return nil, apperrors.NewEmbeddingError("text exceeds embedding input limit")
	}

	e.limiter.Lock()
	defer e.limiter.Unlock()

	jsonData, err := json.Marshal(localEmbedRequest{Inputs: text, Normalize: true})
	if err != nil {
		return nil, apperrors.NewEmbeddingError("failed to marshal embed request").WithCause(err)
	}

	url := fmt.Sprintf("%s/embed", e.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, apperrors.NewEmbeddingError("failed to build embed request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewEmbeddingError("local encoder call failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewEmbeddingError("failed to read encoder response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewEmbeddingError(fmt.Sprintf("local encoder returned HTTP %d: %s", resp.StatusCode, string(body)))
	}

	// 响应是批量形式：每个输入一个向量
	var vectors [][]float32
	if err := json.Unmarshal(body, &vectors); err != nil {
		return nil, apperrors.NewEmbeddingError("failed to parse encoder response").WithCause(err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, apperrors.NewEmbeddingError("encoder response empty")
	}

	return vectors[0], nil
}

func (e *LocalEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *LocalEmbedder) Ready() bool {
	return e.client != nil && e.baseURL != ""
}
