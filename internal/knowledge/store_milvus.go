package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	apperrors "github.com/aihub/ros-rag-go/internal/errors"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Database   string
	Collection string
	UseTLS     bool
	VectorSize int
	MetricType string
	Timeout    time.Duration
}

type milvusStore struct {
	milvusClient client.Client
	collection   string
	vectorSize   int
	metricType   entity.MetricType
}

// NewMilvusStore 创建Milvus向量存储
// VectorSize必须来自Embedding配置，集合Schema由它派生
func NewMilvusStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "ros_knowledge"
	}
	if opts.Database == "" {
		opts.Database = "default"
	}
	if opts.VectorSize <= 0 {
		return nil, apperrors.NewSchemaMismatchError("vector size must be positive")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusStore{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		vectorSize:   opts.VectorSize,
		metricType:   formatMetricType(opts.MetricType),
	}, nil
}

func formatMetricType(value string) entity.MetricType {
	switch value {
	case "COSINE":
		return entity.COSINE
	default:
		return entity.L2
	}
}

func (s *milvusStore) schema() *entity.Schema {
	return &entity.Schema{
		CollectionName: s.collection,
		Description:    "ROS2 Knowledge Base",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "200",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "2000",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorSize),
				},
			},
		},
	}
}

// EnsureCollection 幂等创建集合，已有集合必须与声明的Schema一致
func (s *milvusStore) EnsureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewSearchError("failed to check collection").WithCause(err)
	}

	if hasCollection {
		return s.verifySchema(ctx)
	}

	if err := s.milvusClient.CreateCollection(ctx, s.schema(), entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	return nil
}

// verifySchema 校验已有集合的字段与维度，绝不静默兼容
func (s *milvusStore) verifySchema(ctx context.Context) error {
	coll, err := s.milvusClient.DescribeCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewSearchError("failed to describe collection").WithCause(err)
	}

	fields := make(map[string]*entity.Field, len(coll.Schema.Fields))
	for _, f := range coll.Schema.Fields {
		fields[f.Name] = f
	}

	for _, required := range []string{"id", "title", "content", "embedding"} {
		if _, ok := fields[required]; !ok {
			return apperrors.NewSchemaMismatchError(
				fmt.Sprintf("collection %s is missing field %s", s.collection, required))
		}
	}

	embeddingField := fields["embedding"]
	dimStr, ok := embeddingField.TypeParams["dim"]
	if !ok {
		return apperrors.NewSchemaMismatchError(
			fmt.Sprintf("collection %s embedding field has no dimension", s.collection))
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil || dim != s.vectorSize {
		return apperrors.NewSchemaMismatchError(
			fmt.Sprintf("collection %s dimension is %s, expected %d", s.collection, dimStr, s.vectorSize))
	}

	return nil
}

// ReplaceAll 全量替换：先丢弃旧集合，再批量写入
func (s *milvusStore) ReplaceAll(ctx context.Context, records []Record) error {
	// 维度不一致必须在写入前暴露，绝不能等到检索时
	for _, record := range records {
		if len(record.Embedding) != s.vectorSize {
			return apperrors.NewSchemaMismatchError(
				fmt.Sprintf("record %d embedding has %d dimensions, collection expects %d",
					record.ID, len(record.Embedding), s.vectorSize))
		}
	}

	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewSearchError("failed to check collection").WithCause(err)
	}
	if hasCollection {
		if err := s.milvusClient.DropCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", s.collection, err)
		}
	}

	if err := s.milvusClient.CreateCollection(ctx, s.schema(), entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}

	if len(records) == 0 {
		return nil
	}

	ids := make([]int64, len(records))
	titles := make([]string, len(records))
	contents := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	for i, record := range records {
		ids[i] = record.ID
		titles[i] = record.Title
		contents[i] = record.Content
		embeddings[i] = record.Embedding
	}

	idColumn := entity.NewColumnInt64("id", ids)
	titleColumn := entity.NewColumnVarChar("title", titles)
	contentColumn := entity.NewColumnVarChar("content", contents)
	vectorColumn := entity.NewColumnFloatVector("embedding", s.vectorSize, embeddings)

	if _, err := s.milvusClient.Insert(ctx, s.collection, "", idColumn, titleColumn, contentColumn, vectorColumn); err != nil {
		return fmt.Errorf("milvus insert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection %s: %w", s.collection, err)
	}

	return nil
}

// BuildIndex 在embedding字段上构建ANN索引
func (s *milvusStore) BuildIndex(ctx context.Context, cfg IndexConfig) error {
	nlist := cfg.NList
	if nlist <= 0 {
		nlist = 128
	}

	index, err := entity.NewIndexIvfFlat(formatMetricType(cfg.MetricType), nlist)
	if err != nil {
		return fmt.Errorf("failed to build index config: %w", err)
	}

	if err := s.milvusClient.CreateIndex(ctx, s.collection, "embedding", index, false); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", s.collection, err)
	}
	return nil
}

// Load 将集合载入内存，未建索引的集合明确拒绝
// 无索引检索在后端要么不可用要么慢到不可接受，必须显式检查而不是假设
func (s *milvusStore) Load(ctx context.Context) error {
	indexes, err := s.milvusClient.DescribeIndex(ctx, s.collection, "embedding")
	if err != nil || len(indexes) == 0 {
		return apperrors.NewNotIndexedError(s.collection).WithCause(err)
	}

	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}
	return nil
}

// Search 按配置的度量返回至多topK个最近邻
func (s *milvusStore) Search(ctx context.Context, vector []float32, topK int, params SearchParams) ([]Snippet, error) {
	if len(vector) != s.vectorSize {
		return nil, apperrors.NewSchemaMismatchError(
			fmt.Sprintf("query vector has %d dimensions, collection expects %d", len(vector), s.vectorSize))
	}

	nprobe := params.NProbe
	if nprobe <= 0 {
		nprobe = 10
	}
	sp, err := entity.NewIndexIvfFlatSearchParam(nprobe)
	if err != nil {
		return nil, apperrors.NewSearchError("failed to build search params").WithCause(err)
	}

	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		nil,
		"",
		[]string{"title", "content"},
		[]entity.Vector{entity.FloatVector(vector)},
		"embedding",
		s.metricType,
		topK,
		sp,
	)
	if err != nil {
		return nil, apperrors.NewSearchError("milvus search failed").WithCause(err)
	}

	if len(searchResults) == 0 {
		return []Snippet{}, nil
	}
	result := searchResults[0]
	if result.Err != nil {
		return nil, apperrors.NewSearchError("milvus search error").WithCause(result.Err)
	}
	if result.ResultCount == 0 {
		return []Snippet{}, nil
	}

	var titles, contents []string
	for _, field := range result.Fields {
		switch field.Name() {
		case "title":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				titles = col.Data()
			}
		case "content":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				contents = col.Data()
			}
		}
	}

	// 结果按后端排序返回：相似度最高的在前，得分相同时保持后端顺序
	snippets := make([]Snippet, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		snippet := Snippet{}
		if i < len(titles) {
			snippet.Title = titles[i]
		}
		if i < len(contents) {
			snippet.Content = contents[i]
		}
		if i < len(result.Scores) {
			snippet.Score = float64(result.Scores[i])
		}
		snippets = append(snippets, snippet)
	}

	return snippets, nil
}

func (s *milvusStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}
