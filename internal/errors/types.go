package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 输入校验错误
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeEmptyPrompt  ErrorCode = "EMPTY_PROMPT"

	// 向量化错误
	ErrCodeEmbedding ErrorCode = "EMBEDDING_ERROR"

	// 向量存储错误
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeNotIndexed     ErrorCode = "NOT_INDEXED"
	ErrCodeSearch         ErrorCode = "SEARCH_ERROR"

	// 检索与生成错误
	ErrCodeRetrieval  ErrorCode = "RETRIEVAL_ERROR"
	ErrCodeGeneration ErrorCode = "GENERATION_ERROR"

	// 对话轮次终态错误
	ErrCodeTurnFailure ErrorCode = "TURN_FAILURE"

	// 摄取错误
	ErrCodeIngestion ErrorCode = "INGESTION_ERROR"
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// 错误构造函数

// NewInvalidInputError 创建输入无效错误（在进入核心流程之前拦截）
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidInput,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewEmbeddingError 创建向量化错误
func NewEmbeddingError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeEmbedding,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewSchemaMismatchError 创建集合Schema不匹配错误
// 维度或字段不一致属于致命的配置错误，绝不静默兼容
func NewSchemaMismatchError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeSchemaMismatch,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewNotIndexedError 创建未建索引错误
func NewNotIndexedError(collection string) *AppError {
	return &AppError{
		Code:     ErrCodeNotIndexed,
		Message:  fmt.Sprintf("collection %s has no index, build index before load", collection),
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewSearchError 创建向量检索后端错误
func NewSearchError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeSearch,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewRetrievalError 创建检索错误（包装向量化或检索失败）
func NewRetrievalError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeRetrieval,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewGenerationError 创建模型生成错误
func NewGenerationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeGeneration,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewTurnFailure 创建对话轮次失败错误，保留底层原因
func NewTurnFailure(stage string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeTurnFailure,
		Message:  fmt.Sprintf("turn failed during %s", stage),
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewIngestionError 创建摄取错误
func NewIngestionError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeIngestion,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// IsCode 检查错误链中是否存在指定错误码
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// GetAppError 获取AppError，如果不是则包装为TurnFailure
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewTurnFailure("unknown", err)
}
