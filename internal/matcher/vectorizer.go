package matcher

import (
	"context"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/model"
	"github.com/intentbot/backend/internal/nlp"
)

// VectorizerMatcher is the semantic variant used when no embedding
// backend is configured: cosine similarity between the query's TF-IDF
// vector and every training pattern's, using the same vectorizer the
// classifier was trained with.
type VectorizerMatcher struct {
	norm       *nlp.Normalizer
	vectorizer *model.Vectorizer
	vectors    [][]float64
	tags       []string
	threshold  float64
}

func NewVectorizerMatcher(norm *nlp.Normalizer, vectorizer *model.Vectorizer, snapshot *corpus.Snapshot, threshold float64) *VectorizerMatcher {
	m := &VectorizerMatcher{
		norm:       norm,
		vectorizer: vectorizer,
		threshold:  threshold,
	}

	for _, p := range snapshot.Patterns() {
		m.vectors = append(m.vectors, vectorizer.Transform(norm.Normalize(p.Text)))
		m.tags = append(m.tags, p.Tag)
	}

	return m
}

func (m *VectorizerMatcher) Kind() string {
	return KindSemantic
}

func (m *VectorizerMatcher) BestMatch(_ context.Context, message string) (string, bool) {
	normalized := m.norm.Normalize(message)
	if normalized == "" {
		return "", false
	}

	query := m.vectorizer.Transform(normalized)

	bestTag := ""
	bestScore := 0.0
	for i, vec := range m.vectors {
		// Strict inequality keeps the first pattern reaching the
		// maximum as the winner.
		if score := model.CosineSimilarity(query, vec); score > bestScore {
			bestScore = score
			bestTag = m.tags[i]
		}
	}

	if bestScore > m.threshold {
		return bestTag, true
	}
	return "", false
}
