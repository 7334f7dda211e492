package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Corpus     CorpusConfig
	Model      ModelConfig
	Resolver   ResolverConfig
	Context    ContextConfig
	Responder  ResponderConfig
	Embeddings EmbeddingsConfig
	Milvus     MilvusConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type CorpusConfig struct {
	// FallbackPath is a JSON training-data file used when the corpus
	// tables are empty or unreadable.
	FallbackPath string
}

type ModelConfig struct {
	// Dir holds the trained artifact pair (vectorizer.json, classifier.json).
	Dir         string
	MaxFeatures int
}

type ResolverConfig struct {
	// AcceptThreshold is the classifier confidence at which its intent
	// is taken without consulting any fallback.
	AcceptThreshold float64
	// SemanticThreshold is the minimum similarity for a fallback match.
	SemanticThreshold float64
	// UnknownFloor forces the unknown intent when the classifier is
	// below it and no fallback matched.
	UnknownFloor float64
	// LexicalOverlap is the minimum token-overlap score for the lexical
	// fallback.
	LexicalOverlap float64
}

type ContextConfig struct {
	MaxEntries int
}

type ResponderConfig struct {
	DefaultResponse string
}

type EmbeddingsConfig struct {
	APIKey     string
	Model      string
	Dim        int
	TimeoutSec int
}

type MilvusConfig struct {
	Endpoint       string
	CollectionName string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/intentbot")

	viper.SetEnvPrefix("INTENTBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/intentbot.db")
	viper.SetDefault("corpus.fallbackPath", "./data/training_data.json")

	viper.SetDefault("model.dir", "./data/model")
	viper.SetDefault("model.maxFeatures", 5000)

	viper.SetDefault("resolver.acceptThreshold", 0.60)
	viper.SetDefault("resolver.semanticThreshold", 0.40)
	viper.SetDefault("resolver.unknownFloor", 0.30)
	viper.SetDefault("resolver.lexicalOverlap", 0.50)

	viper.SetDefault("context.maxEntries", 10)

	viper.SetDefault("responder.defaultResponse", "I'm not sure I understand. Could you rephrase that?")

	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("embeddings.dim", 1536)
	viper.SetDefault("embeddings.timeoutSec", 15)

	viper.SetDefault("milvus.collectionName", "intent_patterns")

	viper.SetDefault("redis.host", "")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 3600)

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
