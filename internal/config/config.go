package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Knowledge KnowledgeConfig
	Chat      ChatConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type KnowledgeConfig struct {
	File      string
	Milvus    MilvusConfig
	Embedding EmbeddingConfig
	Retrieval RetrievalConfig
}

type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Database   string
	Collection string
	TLS        bool
	MetricType string // L2 | COSINE
	IndexType  string // IVF_FLAT
	NList      int
}

type EmbeddingConfig struct {
	Provider      string // openai | local
	Model         string
	BaseURL       string
	APIKey        string
	Dimensions    int
	MaxInputChars int
}

type RetrievalConfig struct {
	TopK   int
	NProbe int
}

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Policy      string // always | tool
	MaxTokens   int
	Temperature float64
}

var AppConfig *Config

// 各嵌入模型的向量维度
// 集合Schema的维度必须由这里派生，切换模型需要全量重建知识库
var embeddingDimensions = map[string]int{
	"text-embedding-3-large":                3072,
	"text-embedding-3-small":                1536,
	"text-embedding-ada-002":                1536,
	"paraphrase-multilingual-MiniLM-L12-v2": 384,
}

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")

	// 知识库配置默认值
	viper.SetDefault("knowledge.file", "knowledge.json")
	viper.SetDefault("knowledge.milvus.address", "localhost:19530")
	viper.SetDefault("knowledge.milvus.database", "default")
	viper.SetDefault("knowledge.milvus.collection", "ros_knowledge")
	viper.SetDefault("knowledge.milvus.tls", false)
	viper.SetDefault("knowledge.milvus.metric_type", "L2")
	viper.SetDefault("knowledge.milvus.index_type", "IVF_FLAT")
	viper.SetDefault("knowledge.milvus.nlist", 128)
	viper.SetDefault("knowledge.embedding.provider", "openai")
	viper.SetDefault("knowledge.embedding.model", "")
	viper.SetDefault("knowledge.embedding.base_url", "")
	viper.SetDefault("knowledge.embedding.dimensions", 0)
	viper.SetDefault("knowledge.embedding.max_input_chars", 8192)
	viper.SetDefault("knowledge.retrieval.top_k", 3)
	viper.SetDefault("knowledge.retrieval.nprobe", 10)

	// 聊天模型默认值（DashScope兼容模式）
	viper.SetDefault("chat.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	viper.SetDefault("chat.model", "qwen-turbo")
	viper.SetDefault("chat.policy", "tool")
	viper.SetDefault("chat.max_tokens", 2000)
	viper.SetDefault("chat.temperature", 0.7)

	// 读取环境变量
	viper.SetEnvPrefix("ROSRAG")
	viper.AutomaticEnv()

	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if addr := os.Getenv("MILVUS_ADDRESS"); addr != "" {
		viper.Set("knowledge.milvus.address", addr)
	}
	if db := os.Getenv("MILVUS_DATABASE"); db != "" {
		viper.Set("knowledge.milvus.database", db)
	}
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		viper.Set("knowledge.embedding.provider", provider)
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		viper.Set("knowledge.embedding.model", model)
	}
	if baseURL := os.Getenv("EMBEDDING_BASE_URL"); baseURL != "" {
		viper.Set("knowledge.embedding.base_url", baseURL)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("knowledge.embedding.api_key", apiKey)
	}
	if apiKey := os.Getenv("DASHSCOPE_API_KEY"); apiKey != "" {
		viper.Set("chat.api_key", apiKey)
	}
	if baseURL := os.Getenv("CHAT_BASE_URL"); baseURL != "" {
		viper.Set("chat.base_url", baseURL)
	}
	if model := os.Getenv("CHAT_MODEL"); model != "" {
		viper.Set("chat.model", model)
	}
	if policy := os.Getenv("RETRIEVAL_POLICY"); policy != "" {
		viper.Set("chat.policy", policy)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Knowledge: KnowledgeConfig{
			File: viper.GetString("knowledge.file"),
			Milvus: MilvusConfig{
				Address:    viper.GetString("knowledge.milvus.address"),
				Username:   viper.GetString("knowledge.milvus.username"),
				Password:   viper.GetString("knowledge.milvus.password"),
				Database:   viper.GetString("knowledge.milvus.database"),
				Collection: viper.GetString("knowledge.milvus.collection"),
				TLS:        viper.GetBool("knowledge.milvus.tls"),
				MetricType: viper.GetString("knowledge.milvus.metric_type"),
				IndexType:  viper.GetString("knowledge.milvus.index_type"),
				NList:      viper.GetInt("knowledge.milvus.nlist"),
			},
			Embedding: EmbeddingConfig{
				Provider:      viper.GetString("knowledge.embedding.provider"),
				Model:         viper.GetString("knowledge.embedding.model"),
				BaseURL:       viper.GetString("knowledge.embedding.base_url"),
				APIKey:        viper.GetString("knowledge.embedding.api_key"),
				Dimensions:    viper.GetInt("knowledge.embedding.dimensions"),
				MaxInputChars: viper.GetInt("knowledge.embedding.max_input_chars"),
			},
			Retrieval: RetrievalConfig{
				TopK:   viper.GetInt("knowledge.retrieval.top_k"),
				NProbe: viper.GetInt("knowledge.retrieval.nprobe"),
			},
		},
		Chat: ChatConfig{
			BaseURL:     viper.GetString("chat.base_url"),
			APIKey:      viper.GetString("chat.api_key"),
			Model:       viper.GetString("chat.model"),
			Policy:      viper.GetString("chat.policy"),
			MaxTokens:   viper.GetInt("chat.max_tokens"),
			Temperature: viper.GetFloat64("chat.temperature"),
		},
	}

	applyEmbeddingDefaults(&cfg.Knowledge.Embedding)

	if err := validate(cfg); err != nil {
		return err
	}

	AppConfig = cfg
	return nil
}

// applyEmbeddingDefaults 根据提供方推导模型与维度
func applyEmbeddingDefaults(ec *EmbeddingConfig) {
	if ec.Model == "" {
		switch ec.Provider {
		case "local":
			ec.Model = "paraphrase-multilingual-MiniLM-L12-v2"
		default:
			ec.Model = "text-embedding-3-small"
		}
	}
	if ec.Dimensions == 0 {
		if dims, ok := embeddingDimensions[ec.Model]; ok {
			ec.Dimensions = dims
		}
	}
}

func validate(cfg *Config) error {
	switch cfg.Knowledge.Embedding.Provider {
	case "openai", "local":
	default:
		return fmt.Errorf("unknown embedding provider: %s", cfg.Knowledge.Embedding.Provider)
	}
	if cfg.Knowledge.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions not configured for model %s", cfg.Knowledge.Embedding.Model)
	}
	switch cfg.Knowledge.Milvus.MetricType {
	case "L2", "COSINE":
	default:
		return fmt.Errorf("unsupported metric type: %s", cfg.Knowledge.Milvus.MetricType)
	}
	switch cfg.Chat.Policy {
	case "always", "tool":
	default:
		return fmt.Errorf("unknown retrieval policy: %s", cfg.Chat.Policy)
	}
	return nil
}

// GetAppConfig 获取全局配置
func GetAppConfig() *Config {
	return AppConfig
}
