package knowledge

import (
	"context"

	"go.uber.org/zap"
)

// Report 摄取结果统计
type Report struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Ingestor 知识库摄取流水线
// 重新运行会整体替换之前的知识库，不做增量更新
type Ingestor struct {
	embedder Embedder
	store    VectorStore
	index    IndexConfig
	logger   *zap.Logger
}

// NewIngestor 创建摄取流水线
func NewIngestor(embedder Embedder, store VectorStore, index IndexConfig, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		embedder: embedder,
		store:    store,
		index:    index,
		logger:   logger,
	}
}

// Run 执行一次完整摄取：解析、向量化、全量替换、建索引、载入
// 单条向量化失败跳过并计数，不中断整体摄取；
// 替换、建索引与载入失败对本次摄取是致命的
func (i *Ingestor) Run(ctx context.Context, path string) (*Report, error) {
	entries, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}

	report := &Report{Attempted: len(entries)}
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		embedding, err := i.embedder.Embed(ctx, entry.CombinedText())
		if err != nil {
			report.Failed++
			i.logger.Warn("skipping entry, embedding failed",
				zap.Int64("id", entry.ID),
				zap.String("title", entry.Title),
				zap.Error(err))
			continue
		}
		report.Succeeded++
		records = append(records, Record{Entry: entry, Embedding: embedding})
	}

	if err := i.store.ReplaceAll(ctx, records); err != nil {
		return report, err
	}
	if err := i.store.BuildIndex(ctx, i.index); err != nil {
		return report, err
	}
	if err := i.store.Load(ctx); err != nil {
		return report, err
	}

	i.logger.Info("knowledge base ingested",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))

	return report, nil
}
