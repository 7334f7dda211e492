package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/matcher"
	"github.com/intentbot/backend/internal/model"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/internal/vector/milvus"
	"github.com/intentbot/backend/pkg/logger"
)

// BuildConfig collects the inputs of one snapshot build. Embedder and
// Index are optional; their absence selects the vectorizer-based
// semantic matcher or, without trained artifacts, the lexical one.
type BuildConfig struct {
	Norm              *nlp.Normalizer
	CorpusStore       corpus.Store
	CorpusFallback    string
	ModelDir          string
	Embedder          matcher.Embedder
	Index             *milvus.Index
	SemanticThreshold float64
	LexicalOverlap    float64
}

// BuildSnapshot loads the corpus and artifacts and picks the fallback
// backend once. A missing or corrupt artifact pair is not fatal: the
// snapshot degrades to fallback-only mode with a nil-artifact
// predictor.
func BuildSnapshot(ctx context.Context, cfg BuildConfig) (*Snapshot, error) {
	corpusSnap, err := corpus.Load(cfg.CorpusStore, cfg.CorpusFallback)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	artifacts, err := model.Load(cfg.ModelDir)
	if err != nil {
		logger.Warn("Model artifacts unavailable, running fallback-only",
			zap.String("dir", cfg.ModelDir),
			zap.Error(err),
		)
		artifacts = nil
	}

	var m matcher.SimilarityMatcher
	if cfg.Embedder != nil {
		em, err := matcher.BuildEmbeddingMatcher(ctx, cfg.Embedder, cfg.Index, corpusSnap, cfg.SemanticThreshold)
		if err != nil {
			logger.Warn("Embedding matcher unavailable", zap.Error(err))
		} else {
			m = em
		}
	}
	if m == nil && artifacts != nil {
		m = matcher.NewVectorizerMatcher(cfg.Norm, artifacts.Vectorizer, corpusSnap, cfg.SemanticThreshold)
	}
	if m == nil {
		m = matcher.NewLexicalMatcher(cfg.Norm, corpusSnap, cfg.LexicalOverlap)
	}

	logger.Info("Snapshot built",
		zap.Int("intents", corpusSnap.Len()),
		zap.String("matcher", m.Kind()),
		zap.Bool("classifier", artifacts != nil),
	)

	return &Snapshot{
		Corpus:    corpusSnap,
		Predictor: model.NewPredictor(cfg.Norm, artifacts),
		Matcher:   m,
	}, nil
}
