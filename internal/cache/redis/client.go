package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/intentbot/backend/pkg/logger"
)

// Client caches the two expensive, deterministic products of a turn:
// query embeddings and resolved intents. Both are keyed by content
// hash; replies are never cached because template selection is random.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

// Resolution is the cached outcome of the cascade for one normalized
// message.
type Resolution struct {
	Intent     string  `json:"intent"`
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetEmbedding(ctx context.Context, textHash string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("embedding:%s", textHash), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set embedding cache: %w", err)
	}

	logger.Debug("Embedding cached", zap.String("text_hash", textHash))
	return nil
}

func (c *Client) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("embedding:%s", textHash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}

	var embedding []float32
	err = json.Unmarshal(data, &embedding)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	logger.Debug("Embedding cache hit", zap.String("text_hash", textHash))
	return embedding, true, nil
}

func (c *Client) SetResolution(ctx context.Context, queryHash string, res Resolution) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal resolution: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("resolution:%s", queryHash), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set resolution cache: %w", err)
	}

	logger.Debug("Resolution cached", zap.String("query_hash", queryHash))
	return nil
}

func (c *Client) GetResolution(ctx context.Context, queryHash string) (*Resolution, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("resolution:%s", queryHash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get resolution cache: %w", err)
	}

	var res Resolution
	err = json.Unmarshal(data, &res)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal resolution: %w", err)
	}

	logger.Debug("Resolution cache hit", zap.String("query_hash", queryHash))
	return &res, true, nil
}

// Invalidate drops all cached resolutions, called after a corpus or
// model reload so stale intents never survive a retrain.
func (c *Client) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "resolution:*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Resolution cache invalidated")
	return nil
}
