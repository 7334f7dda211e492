package model

import "github.com/intentbot/backend/internal/nlp"

// Predictor is the statistical stage of the cascade: it normalizes the
// raw message, vectorizes it, and reports the classifier's top intent
// with its posterior.
type Predictor struct {
	norm      *nlp.Normalizer
	artifacts *Artifacts
}

// NewPredictor accepts a nil artifact pair, in which case every
// prediction degrades to ("", 0.0) and the cascade runs fallback-only.
func NewPredictor(norm *nlp.Normalizer, artifacts *Artifacts) *Predictor {
	return &Predictor{norm: norm, artifacts: artifacts}
}

func (p *Predictor) Predict(text string) (string, float64) {
	if p.artifacts == nil {
		return "", 0.0
	}

	normalized := p.norm.Normalize(text)
	if normalized == "" {
		return "", 0.0
	}

	vec := p.artifacts.Vectorizer.Transform(normalized)
	return p.artifacts.Classifier.Predict(vec)
}
