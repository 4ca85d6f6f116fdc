package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/aihub/ros-rag-go/internal/di"
	apperrors "github.com/aihub/ros-rag-go/internal/errors"
	"github.com/aihub/ros-rag-go/internal/logger"
	"github.com/aihub/ros-rag-go/internal/services"
)

// ChatController 对话控制器
type ChatController struct {
	BaseController
	answerService *services.AnswerService
}

// ChatRequest 对话请求体
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

func (c *ChatController) Prepare() {
	if c.answerService == nil {
		if err := di.Invoke(func(s *services.AnswerService) {
			c.answerService = s
		}); err != nil {
			logger.Error("failed to resolve answer service", zap.Error(err))
		}
	}
}

// Chat 处理一轮对话请求
// 响应与请求格式保持原有前端契约：{"text": ..., "context": [...]}
func (c *ChatController) Chat() {
	if c.answerService == nil {
		c.JSONError(http.StatusInternalServerError, "service unavailable")
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	// 空prompt是调用方输入错误，在进入核心流程之前拦截
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSONError(http.StatusBadRequest, "Empty prompt")
		return
	}

	turn, err := c.answerService.Answer(c.Ctx.Request.Context(), req.Prompt)
	if err != nil {
		appErr := apperrors.GetAppError(err)
		logger.Error("turn failed",
			zap.String("code", string(appErr.Code)),
			zap.Error(err))
		c.JSONError(appErr.HTTPCode, appErr.Error())
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"text":    turn.Answer,
		"context": turn.Context,
	})
}
