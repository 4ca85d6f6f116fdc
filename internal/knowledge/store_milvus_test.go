package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/ros-rag-go/internal/errors"
)

// fakeMilvusClient 只覆盖被测路径用到的方法，其余走内嵌接口
type fakeMilvusClient struct {
	client.Client

	hasCollection   bool
	describeColl    *entity.Collection
	describeCollErr error
	indexes         []entity.Index
	describeIdxErr  error
	loadCalled      bool
	loadErr         error
	searchResults   []client.SearchResult
	searchErr       error
}

func (f *fakeMilvusClient) HasCollection(_ context.Context, _ string) (bool, error) {
	return f.hasCollection, nil
}

func (f *fakeMilvusClient) DescribeCollection(_ context.Context, _ string) (*entity.Collection, error) {
	return f.describeColl, f.describeCollErr
}

func (f *fakeMilvusClient) DescribeIndex(_ context.Context, _, _ string, _ ...client.IndexOption) ([]entity.Index, error) {
	return f.indexes, f.describeIdxErr
}

func (f *fakeMilvusClient) LoadCollection(_ context.Context, _ string, _ bool, _ ...client.LoadCollectionOption) error {
	f.loadCalled = true
	return f.loadErr
}

func (f *fakeMilvusClient) ListCollections(_ context.Context, _ ...client.ListCollectionOption) ([]*entity.Collection, error) {
	return nil, nil
}

func (f *fakeMilvusClient) Search(_ context.Context, _ string, _ []string, _ string, _ []string, _ []entity.Vector, _ string, _ entity.MetricType, _ int, _ entity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	return f.searchResults, f.searchErr
}

func newFakeStore(fake *fakeMilvusClient, vectorSize int) *milvusStore {
	return &milvusStore{
		milvusClient: fake,
		collection:   "ros_knowledge",
		vectorSize:   vectorSize,
		metricType:   entity.L2,
	}
}

func TestFormatMetricType(t *testing.T) {
	assert.Equal(t, entity.COSINE, formatMetricType("COSINE"))
	assert.Equal(t, entity.L2, formatMetricType("L2"))
	// 未知值回落到L2
	assert.Equal(t, entity.L2, formatMetricType(""))
	assert.Equal(t, entity.L2, formatMetricType("IP"))
}

func TestNewMilvusStore_InvalidVectorSize(t *testing.T) {
	_, err := NewMilvusStore(MilvusOptions{Address: "localhost:19530"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSchemaMismatch))
}

func TestMilvusStore_Schema(t *testing.T) {
	store := &milvusStore{collection: "ros_knowledge", vectorSize: 384}
	schema := store.schema()

	assert.Equal(t, "ros_knowledge", schema.CollectionName)
	require.Len(t, schema.Fields, 4)

	fields := make(map[string]*entity.Field, len(schema.Fields))
	for _, f := range schema.Fields {
		fields[f.Name] = f
	}

	require.Contains(t, fields, "id")
	assert.True(t, fields["id"].PrimaryKey)
	assert.False(t, fields["id"].AutoID)
	assert.Equal(t, entity.FieldTypeInt64, fields["id"].DataType)

	assert.Equal(t, "200", fields["title"].TypeParams["max_length"])
	assert.Equal(t, "2000", fields["content"].TypeParams["max_length"])

	// 向量维度由Embedding配置派生
	assert.Equal(t, entity.FieldTypeFloatVector, fields["embedding"].DataType)
	assert.Equal(t, "384", fields["embedding"].TypeParams["dim"])
}

func TestMilvusStore_ReplaceAll_DimensionMismatch(t *testing.T) {
	store := &milvusStore{collection: "ros_knowledge", vectorSize: 4}

	// 维度检查在任何后端调用之前，带nil客户端也不会panic
	err := store.ReplaceAll(context.Background(), []Record{
		{Entry: Entry{ID: 1, Title: "启动节点", Content: "ros2 run"}, Embedding: []float32{0.1, 0.2, 0.3}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSchemaMismatch))
	assert.Contains(t, err.Error(), "record 1")
}

func TestMilvusStore_Search_DimensionMismatch(t *testing.T) {
	store := &milvusStore{collection: "ros_knowledge", vectorSize: 4}

	_, err := store.Search(context.Background(), []float32{0.1, 0.2}, 3, SearchParams{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSchemaMismatch))
}

func TestMilvusStore_Ready_NilClient(t *testing.T) {
	store := &milvusStore{collection: "ros_knowledge", vectorSize: 4}
	assert.False(t, store.Ready())
}

func TestMilvusStore_Load_NotIndexed(t *testing.T) {
	// 未建索引的集合拒绝载入，根本不会发起载入调用
	fake := &fakeMilvusClient{describeIdxErr: errors.New("index not found")}
	store := newFakeStore(fake, 4)

	err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotIndexed))
	assert.False(t, fake.loadCalled)

	// 后端返回空索引列表等同于没有索引
	fake = &fakeMilvusClient{indexes: []entity.Index{}}
	store = newFakeStore(fake, 4)

	err = store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotIndexed))
	assert.False(t, fake.loadCalled)
}

func TestMilvusStore_Load_Indexed(t *testing.T) {
	fake := &fakeMilvusClient{
		indexes: []entity.Index{entity.NewGenericIndex("embedding", entity.IvfFlat, nil)},
	}
	store := newFakeStore(fake, 4)

	require.NoError(t, store.Load(context.Background()))
	assert.True(t, fake.loadCalled)
	assert.True(t, store.Ready())
}

func TestMilvusStore_EnsureCollection_SchemaMatch(t *testing.T) {
	existing := &milvusStore{collection: "ros_knowledge", vectorSize: 384}
	fake := &fakeMilvusClient{
		hasCollection: true,
		describeColl:  &entity.Collection{Schema: existing.schema()},
	}
	store := newFakeStore(fake, 384)

	assert.NoError(t, store.EnsureCollection(context.Background()))
}

func TestMilvusStore_EnsureCollection_DimensionMismatch(t *testing.T) {
	// 已有集合是1536维（远端模型），按384维（本地模型）配置启动必须报错，
	// 绝不静默兼容
	existing := &milvusStore{collection: "ros_knowledge", vectorSize: 1536}
	fake := &fakeMilvusClient{
		hasCollection: true,
		describeColl:  &entity.Collection{Schema: existing.schema()},
	}
	store := newFakeStore(fake, 384)

	err := store.EnsureCollection(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSchemaMismatch))
	assert.Contains(t, err.Error(), "expected 384")
}

func TestMilvusStore_EnsureCollection_MissingField(t *testing.T) {
	fake := &fakeMilvusClient{
		hasCollection: true,
		describeColl: &entity.Collection{Schema: &entity.Schema{
			CollectionName: "ros_knowledge",
			Fields: []*entity.Field{
				{Name: "id", DataType: entity.FieldTypeInt64, PrimaryKey: true},
				{Name: "title", DataType: entity.FieldTypeVarChar},
				{Name: "embedding", DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{"dim": "384"}},
			},
		}},
	}
	store := newFakeStore(fake, 384)

	err := store.EnsureCollection(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSchemaMismatch))
	assert.Contains(t, err.Error(), "missing field content")
}

func TestMilvusStore_Search_Results(t *testing.T) {
	fake := &fakeMilvusClient{
		searchResults: []client.SearchResult{
			{
				ResultCount: 2,
				Fields: client.ResultSet{
					entity.NewColumnVarChar("title", []string{"启动节点", "启动文件"}),
					entity.NewColumnVarChar("content", []string{"ros2 run", "ros2 launch"}),
				},
				Scores: []float32{0.12, 0.45},
			},
		},
	}
	store := newFakeStore(fake, 4)

	snippets, err := store.Search(context.Background(), []float32{0, 0, 0, 0}, 3, SearchParams{})
	require.NoError(t, err)
	require.Len(t, snippets, 2)
	assert.Equal(t, Snippet{Title: "启动节点", Content: "ros2 run", Score: float64(float32(0.12))}, snippets[0])
	assert.Equal(t, "启动文件", snippets[1].Title)
}

func TestMilvusStore_Search_EmptyCollection(t *testing.T) {
	// 空集合返回空结果而不是错误
	fake := &fakeMilvusClient{searchResults: []client.SearchResult{{ResultCount: 0}}}
	store := newFakeStore(fake, 4)

	snippets, err := store.Search(context.Background(), []float32{0, 0, 0, 0}, 3, SearchParams{})
	require.NoError(t, err)
	assert.NotNil(t, snippets)
	assert.Empty(t, snippets)

	// 后端连一个结果组都没返回时同样是空结果
	fake = &fakeMilvusClient{searchResults: []client.SearchResult{}}
	store = newFakeStore(fake, 4)

	snippets, err = store.Search(context.Background(), []float32{0, 0, 0, 0}, 3, SearchParams{})
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestMilvusStore_Search_BackendError(t *testing.T) {
	fake := &fakeMilvusClient{searchErr: errors.New("collection not loaded")}
	store := newFakeStore(fake, 4)

	_, err := store.Search(context.Background(), []float32{0, 0, 0, 0}, 3, SearchParams{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSearch))
}
