package model

import (
	"fmt"
	"math"
	"sort"
)

// Classifier is a multinomial naive Bayes model over TF-IDF features.
// Its posterior for the winning class is the confidence reported to the
// cascade, with no further calibration.
type Classifier struct {
	Version  string    `json:"version"`
	Classes  []string  `json:"classes"`
	LogPrior []float64 `json:"log_prior"`
	// FeatLogLik[c][f] is the smoothed log likelihood of feature f in
	// class c.
	FeatLogLik [][]float64 `json:"feat_log_lik"`
}

// Train fits the model. X rows must share one length; y holds the
// intent tag per row.
func Train(version string, X [][]float64, y []string) (*Classifier, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("training set is empty or misaligned: %d rows, %d labels", len(X), len(y))
	}

	features := len(X[0])
	classSet := make(map[string]struct{})
	for _, tag := range y {
		classSet[tag] = struct{}{}
	}
	classes := make([]string, 0, len(classSet))
	for tag := range classSet {
		classes = append(classes, tag)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, tag := range classes {
		index[tag] = i
	}

	counts := make([][]float64, len(classes))
	for i := range counts {
		counts[i] = make([]float64, features)
	}
	docs := make([]float64, len(classes))

	for row, vec := range X {
		if len(vec) != features {
			return nil, fmt.Errorf("row %d has %d features, want %d", row, len(vec), features)
		}
		c := index[y[row]]
		docs[c]++
		for f, x := range vec {
			counts[c][f] += x
		}
	}

	cls := &Classifier{
		Version:    version,
		Classes:    classes,
		LogPrior:   make([]float64, len(classes)),
		FeatLogLik: make([][]float64, len(classes)),
	}

	total := float64(len(X))
	for c := range classes {
		cls.LogPrior[c] = math.Log(docs[c] / total)

		var sum float64
		for _, x := range counts[c] {
			sum += x
		}
		// Laplace smoothing keeps unseen features finite.
		denom := math.Log(sum + float64(features))
		cls.FeatLogLik[c] = make([]float64, features)
		for f, x := range counts[c] {
			cls.FeatLogLik[c][f] = math.Log(x+1) - denom
		}
	}

	return cls, nil
}

// PredictProba returns the posterior distribution over Classes.
func (c *Classifier) PredictProba(vec []float64) []float64 {
	joint := make([]float64, len(c.Classes))
	for i := range c.Classes {
		ll := c.LogPrior[i]
		for f, x := range vec {
			if x != 0 {
				ll += x * c.FeatLogLik[i][f]
			}
		}
		joint[i] = ll
	}

	// Log-sum-exp normalization.
	max := math.Inf(-1)
	for _, ll := range joint {
		if ll > max {
			max = ll
		}
	}
	var sum float64
	probs := make([]float64, len(joint))
	for i, ll := range joint {
		probs[i] = math.Exp(ll - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Predict returns the arg-max class and its posterior.
func (c *Classifier) Predict(vec []float64) (string, float64) {
	probs := c.PredictProba(vec)
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return c.Classes[best], probs[best]
}

func (c *Classifier) FeatureCount() int {
	if len(c.FeatLogLik) == 0 {
		return 0
	}
	return len(c.FeatLogLik[0])
}
