// Package training fits the vectorizer and classifier from a corpus
// snapshot and writes the versioned artifact pair.
package training

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/metrics"
	"github.com/intentbot/backend/internal/model"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/pkg/logger"
)

// Report summarizes one completed training run.
type Report struct {
	Version  string        `json:"version"`
	Intents  int           `json:"intents"`
	Patterns int           `json:"patterns"`
	Features int           `json:"features"`
	Duration time.Duration `json:"-"`
}

type Trainer struct {
	norm        *nlp.Normalizer
	maxFeatures int
	modelDir    string
}

func NewTrainer(norm *nlp.Normalizer, maxFeatures int, modelDir string) *Trainer {
	return &Trainer{norm: norm, maxFeatures: maxFeatures, modelDir: modelDir}
}

// Train normalizes every pattern, fits the TF-IDF vectorizer and the
// classifier on the full corpus, and persists both under a fresh
// version. Patterns that normalize to nothing are dropped from the
// training set.
func (t *Trainer) Train(snapshot *corpus.Snapshot) (*Report, error) {
	start := time.Now()

	var docs []string
	var labels []string
	for _, p := range snapshot.Patterns() {
		doc := t.norm.Normalize(p.Text)
		if doc == "" {
			logger.Debug("Pattern normalized to nothing, skipped",
				zap.String("pattern", p.Text),
				zap.String("tag", p.Tag),
			)
			continue
		}
		docs = append(docs, doc)
		labels = append(labels, p.Tag)
	}
	if len(docs) == 0 {
		metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("no trainable patterns in corpus of %d intents", snapshot.Len())
	}

	version := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), uuid.New().String()[:8])

	vectorizer := model.NewVectorizer(version, t.maxFeatures)
	vectorizer.Fit(docs)

	X := make([][]float64, len(docs))
	for i, doc := range docs {
		X[i] = vectorizer.Transform(doc)
	}

	classifier, err := model.Train(version, X, labels)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to train classifier: %w", err)
	}

	artifacts := &model.Artifacts{Vectorizer: vectorizer, Classifier: classifier}
	if err := model.Save(t.modelDir, artifacts); err != nil {
		metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save artifacts: %w", err)
	}

	elapsed := time.Since(start)
	metrics.TrainingRuns.WithLabelValues("ok").Inc()
	metrics.TrainingDuration.Observe(elapsed.Seconds())

	logger.Info("Training complete",
		zap.String("version", version),
		zap.Int("intents", snapshot.Len()),
		zap.Int("patterns", len(docs)),
		zap.Int("features", vectorizer.Dim()),
		zap.Duration("duration", elapsed),
	)

	return &Report{
		Version:  version,
		Intents:  snapshot.Len(),
		Patterns: len(docs),
		Features: vectorizer.Dim(),
		Duration: elapsed,
	}, nil
}
