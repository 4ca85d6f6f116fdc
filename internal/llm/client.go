package llm

import (
	"context"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aihub/ros-rag-go/internal/config"
	apperrors "github.com/aihub/ros-rag-go/internal/errors"
)

// ChatClient 生成模型的窄接口
// 一次调用对应一轮生成；工具调用协议通过消息与工具定义透传
type ChatClient interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
	Ready() bool
}

// OpenAIChatClient 基于OpenAI兼容接口的聊天客户端
// BaseURL指向DashScope兼容模式即可使用千问系列模型
type OpenAIChatClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	limiter     sync.Mutex
}

// NewOpenAIChatClient 创建聊天客户端
func NewOpenAIChatClient(cfg config.ChatConfig) *OpenAIChatClient {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIChatClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

func (c *OpenAIChatClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	c.limiter.Lock()
	defer c.limiter.Unlock()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, apperrors.NewGenerationError("chat completion failed").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, apperrors.NewGenerationError("chat completion returned no choices")
	}

	return resp.Choices[0].Message, nil
}

func (c *OpenAIChatClient) Ready() bool {
	return c.client != nil
}
