package knowledge

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/aihub/ros-rag-go/internal/errors"
)

// Document 知识库文档格式
type Document struct {
	Entries []Entry `json:"knowledge_base"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadDocument 读取并校验知识库文档
// 文档整体不合法是致命错误，单条校验失败同样终止摄取：
// 脏数据应该在源头修复，而不是静默丢弃
func LoadDocument(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIngestionError(fmt.Sprintf("failed to read knowledge file %s", path)).WithCause(err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewIngestionError("knowledge file is not valid JSON").WithCause(err)
	}
	if len(doc.Entries) == 0 {
		return nil, apperrors.NewIngestionError("knowledge file contains no entries")
	}

	seen := make(map[int64]bool, len(doc.Entries))
	for i, entry := range doc.Entries {
		if err := validate.Struct(entry); err != nil {
			return nil, apperrors.NewIngestionError(fmt.Sprintf("entry %d is invalid", i)).WithCause(err)
		}
		if seen[entry.ID] {
			return nil, apperrors.NewIngestionError(fmt.Sprintf("duplicate entry id %d", entry.ID))
		}
		seen[entry.ID] = true
	}

	return doc.Entries, nil
}
