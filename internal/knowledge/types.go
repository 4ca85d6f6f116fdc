package knowledge

// Entry 知识条目，来源于知识库文档，摄取后不可变
type Entry struct {
	ID      int64  `json:"id" validate:"required"`
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=2000"`
}

// CombinedText 返回用于向量化的文本
// 向量始终由标题+内容联合生成，保证检索同时匹配两种语义信号
func (e Entry) CombinedText() string {
	return e.Title + " " + e.Content
}

// Record 入库单元：条目及其向量
type Record struct {
	Entry
	Embedding []float32
}

// Snippet 检索结果片段，按相似度降序排列
type Snippet struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// IndexConfig ANN索引配置，摄取时选定一次
type IndexConfig struct {
	MetricType string // L2 | COSINE
	IndexType  string // IVF_FLAT
	NList      int
}

// SearchParams 检索期参数，独立于索引配置，可不重建索引直接调整
type SearchParams struct {
	NProbe int
}
