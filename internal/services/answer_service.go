package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/aihub/ros-rag-go/internal/config"
	apperrors "github.com/aihub/ros-rag-go/internal/errors"
	"github.com/aihub/ros-rag-go/internal/knowledge"
	"github.com/aihub/ros-rag-go/internal/llm"
)

// Retriever 检索引擎的窄接口
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]knowledge.Snippet, error)
}

// Turn 单轮对话结果
type Turn struct {
	Answer  string   `json:"text"`
	Context []string `json:"context"`
}

// 对话轮次状态机
// RECEIVED → DECIDING → (SKIP | RETRIEVING) → CONTEXT_READY → GENERATING → RESPONDED
// 任意非终态都可进入FAILED
type turnState string

const (
	stateReceived     turnState = "RECEIVED"
	stateDeciding     turnState = "DECIDING"
	stateRetrieving   turnState = "RETRIEVING"
	stateContextReady turnState = "CONTEXT_READY"
	stateGenerating   turnState = "GENERATING"
	stateResponded    turnState = "RESPONDED"
)

// 检索策略
const (
	PolicyAlways      = "always"
	PolicyToolDecided = "tool"
)

const searchToolName = "search_ros_knowledge"

// AnswerService 对话轮次编排器
// 每轮对话相互独立，不保留跨轮状态
type AnswerService struct {
	retriever Retriever
	chat      llm.ChatClient
	policy    string
	topK      int
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAnswerService 创建对话编排器
func NewAnswerService(retriever Retriever, chat llm.ChatClient, cfg *config.Config, metrics *MetricsService, logger *zap.Logger) *AnswerService {
	return &AnswerService{
		retriever: retriever,
		chat:      chat,
		policy:    cfg.Chat.Policy,
		topK:      cfg.Knowledge.Retrieval.TopK,
		metrics:   metrics,
		logger:    logger,
	}
}

// Answer 处理一轮对话
// 检索或生成失败都会让整轮失败并把底层原因暴露给调用方，
// 不会静默降级为无依据回答
func (s *AnswerService) Answer(ctx context.Context, prompt string) (*Turn, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.NewInvalidInputError("prompt is empty")
	}

	var (
		turn *Turn
		err  error
	)
	switch s.policy {
	case PolicyAlways:
		turn, err = s.answerAlways(ctx, prompt)
	case PolicyToolDecided:
		turn, err = s.answerToolDecided(ctx, prompt)
	default:
		// 配置层已校验策略取值，这里兜底直接构造的服务实例
		err = apperrors.NewTurnFailure(string(stateReceived),
			fmt.Errorf("unknown retrieval policy %s", s.policy))
	}

	if err != nil {
		s.metrics.ObserveTurn(s.policy, "failed")
		return nil, err
	}

	s.metrics.ObserveTurn(s.policy, "ok")
	s.logger.Info("turn completed",
		zap.String("policy", s.policy),
		zap.Int("context_snippets", len(turn.Context)))
	return turn, nil
}

// answerAlways 无条件检索策略：每轮都检索，单次生成调用
func (s *AnswerService) answerAlways(ctx context.Context, prompt string) (*Turn, error) {
	snippets, err := s.retriever.Retrieve(ctx, prompt, s.topK)
	if err != nil {
		return nil, apperrors.NewTurnFailure(string(stateRetrieving), err)
	}
	s.metrics.ObserveRetrieval()

	contextLines := formatSnippets(snippets)
	augmented := buildAugmentedPrompt(prompt, contextLines)

	message, err := s.chat.Complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: augmented},
	}, nil)
	if err != nil {
		return nil, apperrors.NewTurnFailure(string(stateGenerating), err)
	}
	s.metrics.ObserveGeneration()

	return &Turn{Answer: message.Content, Context: contextLines}, nil
}

// answerToolDecided 工具调用策略：首轮由模型自行决定是否检索，
// 命中工具则执行检索并带结果做第二轮生成
func (s *AnswerService) answerToolDecided(ctx context.Context, prompt string) (*Turn, error) {
	userMessage := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}

	first, err := s.chat.Complete(ctx, []openai.ChatCompletionMessage{userMessage}, searchTools())
	if err != nil {
		return nil, apperrors.NewTurnFailure(string(stateDeciding), err)
	}
	s.metrics.ObserveGeneration()

	// 模型没有调用工具：首轮回答即最终回答，无检索上下文
	if len(first.ToolCalls) == 0 {
		return &Turn{Answer: first.Content, Context: []string{}}, nil
	}

	// 只执行第一个工具调用；转发给第二轮的消息也只保留这一个，
	// 否则剩余的tool_call_id没有对应结果，第二轮请求会被拒绝
	toolCall := first.ToolCalls[0]
	first.ToolCalls = first.ToolCalls[:1]
	if toolCall.Function.Name != searchToolName {
		return nil, apperrors.NewTurnFailure(string(stateDeciding),
			apperrors.NewGenerationError(fmt.Sprintf("model requested unknown tool %s", toolCall.Function.Name)))
	}

	var args struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
		return nil, apperrors.NewTurnFailure(string(stateDeciding),
			apperrors.NewGenerationError("failed to parse tool arguments").WithCause(err))
	}

	snippets, err := s.retriever.Retrieve(ctx, args.Query, args.TopK)
	if err != nil {
		return nil, apperrors.NewTurnFailure(string(stateRetrieving), err)
	}
	s.metrics.ObserveRetrieval()

	contextLines := formatSnippets(snippets)

	second, err := s.chat.Complete(ctx, []openai.ChatCompletionMessage{
		userMessage,
		first,
		{
			Role:       openai.ChatMessageRoleTool,
			Content:    strings.Join(contextLines, "\n"),
			ToolCallID: toolCall.ID,
		},
	}, nil)
	if err != nil {
		return nil, apperrors.NewTurnFailure(string(stateGenerating), err)
	}
	s.metrics.ObserveGeneration()

	return &Turn{Answer: second.Content, Context: contextLines}, nil
}

// searchTools 知识库检索工具定义
func searchTools() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        searchToolName,
				Description: "当用户询问ROS2相关技术问题时搜索知识库",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"query": {
							Type:        jsonschema.String,
							Description: "用于知识库搜索的关键词或问题，用中文表述",
						},
						"top_k": {
							Type:        jsonschema.Integer,
							Description: "返回结果数量",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
}

// formatSnippets 把检索片段格式化为带标题标签的上下文行
func formatSnippets(snippets []knowledge.Snippet) []string {
	lines := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		lines = append(lines, fmt.Sprintf("【%s】%s", snippet.Title, snippet.Content))
	}
	return lines
}

// buildAugmentedPrompt 组装带知识库上下文的增强提示词
// 检索为空时提示词不声称提供了知识库内容，并明确告知模型不要编造引用
func buildAugmentedPrompt(prompt string, contextLines []string) string {
	var b strings.Builder
	if len(contextLines) == 0 {
		b.WriteString("你是ROS2技术助手。\n")
		b.WriteString("本次没有检索到相关知识，请基于通用知识用中文回答，不要编造引用。\n")
	} else {
		b.WriteString("你是ROS2技术助手。请根据下面提供的知识库内容回答用户问题。\n")
		b.WriteString("要求：用中文回答；给出可执行的ros2命令示例；引用所用条目的标题，格式为【标题】。\n")
		b.WriteString("\n知识库内容：\n")
		for _, line := range contextLines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n用户问题：")
	b.WriteString(prompt)
	return b.String()
}
