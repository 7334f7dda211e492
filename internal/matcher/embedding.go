package matcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/embedding"
	"github.com/intentbot/backend/internal/vector/milvus"
	"github.com/intentbot/backend/pkg/logger"
)

// Embedder abstracts the embedding client so the matcher is testable
// without network access.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingMatcher is the semantic variant backed by an embedding
// model. Pattern vectors are computed once at snapshot build; queries
// are scored against them by cosine similarity, through the milvus
// index when one is configured and an in-memory scan otherwise.
type EmbeddingMatcher struct {
	embedder  Embedder
	index     *milvus.Index
	vectors   [][]float32
	tags      []string
	threshold float64
}

// BuildEmbeddingMatcher embeds every corpus pattern up front. The index
// may be nil.
func BuildEmbeddingMatcher(ctx context.Context, embedder Embedder, index *milvus.Index, snapshot *corpus.Snapshot, threshold float64) (*EmbeddingMatcher, error) {
	patterns := snapshot.Patterns()
	texts := make([]string, len(patterns))
	tags := make([]string, len(patterns))
	ids := make([]string, len(patterns))
	for i, p := range patterns {
		texts[i] = p.Text
		tags[i] = p.Tag
		ids[i] = fmt.Sprintf("%s_%d", p.Tag, i)
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus patterns: %w", err)
	}

	if index != nil {
		if err := index.Rebuild(ctx, ids, tags, vectors); err != nil {
			// The in-memory vectors still serve; a broken index only
			// costs the ANN shortcut.
			logger.Warn("Pattern index rebuild failed, using in-memory scan", zap.Error(err))
			index = nil
		}
	}

	logger.Info("Embedding matcher built",
		zap.Int("patterns", len(patterns)),
		zap.Bool("indexed", index != nil),
	)

	return &EmbeddingMatcher{
		embedder:  embedder,
		index:     index,
		vectors:   vectors,
		tags:      tags,
		threshold: threshold,
	}, nil
}

func (m *EmbeddingMatcher) Kind() string {
	return KindSemantic
}

func (m *EmbeddingMatcher) BestMatch(ctx context.Context, message string) (string, bool) {
	query, err := m.embedder.Embed(ctx, message)
	if err != nil {
		logger.Warn("Query embedding failed", zap.Error(err))
		return "", false
	}

	if m.index != nil {
		match, err := m.index.Search(ctx, query)
		if err != nil {
			logger.Warn("Pattern index search failed, falling back to scan", zap.Error(err))
		} else if match != nil {
			if float64(match.Score) > m.threshold {
				return match.Tag, true
			}
			return "", false
		}
	}

	bestTag := ""
	bestScore := float32(0)
	for i, vec := range m.vectors {
		if score := embedding.Dot(query, vec); score > bestScore {
			bestScore = score
			bestTag = m.tags[i]
		}
	}

	if float64(bestScore) > m.threshold {
		return bestTag, true
	}
	return "", false
}
