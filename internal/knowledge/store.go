package knowledge

import "context"

// VectorStore 向量存储抽象
// 管理操作（EnsureCollection/ReplaceAll/BuildIndex/Load）属于离线维护，
// 不应与在线检索并发执行
type VectorStore interface {
	// EnsureCollection 幂等地创建集合；已有集合维度或字段不一致时报SchemaMismatch
	EnsureCollection(ctx context.Context) error
	// ReplaceAll 丢弃现有集合并全量重建，语义是整体替换而不是合并
	ReplaceAll(ctx context.Context, records []Record) error
	// BuildIndex 在向量字段上构建ANN索引，每次ReplaceAll之后必须执行一次
	BuildIndex(ctx context.Context, cfg IndexConfig) error
	// Load 将集合载入内存以供检索；未建索引的集合拒绝载入
	Load(ctx context.Context) error
	// Search 返回至多topK个最近邻；空集合返回空结果而不是错误
	Search(ctx context.Context, vector []float32, topK int, params SearchParams) ([]Snippet, error)
	Ready() bool
}
