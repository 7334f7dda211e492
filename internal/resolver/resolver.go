// Package resolver implements the confidence cascade: classifier
// first, one fallback matcher second, forced unknown last. The decision
// is a small state machine with named terminal states so every branch
// is directly testable.
package resolver

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/matcher"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/pkg/logger"
)

// Classifier is the statistical stage; model.Predictor implements it.
type Classifier interface {
	Predict(text string) (tag string, confidence float64)
}

// State names the terminal state of one cascade run.
type State string

const (
	// StateClassifierAccepted: classifier confidence cleared the accept
	// threshold; fallbacks never ran.
	StateClassifierAccepted State = "classifier-accepted"
	// StateSemanticAccepted: semantic fallback overrode a
	// low-confidence classifier guess.
	StateSemanticAccepted State = "semantic-accepted"
	// StateLexicalAccepted: lexical fallback matched while running as
	// the degraded-mode substitute for the semantic matcher.
	StateLexicalAccepted State = "lexical-accepted"
	// StateClassifierFallback: no fallback match, but the classifier
	// guess sat between the unknown floor and the accept threshold, so
	// it stands.
	StateClassifierFallback State = "classifier-fallback"
	// StateForcedUnknown: no usable signal anywhere.
	StateForcedUnknown State = "forced-unknown"
)

// Resolution is the ephemeral per-turn outcome. Confidence is the
// classifier's posterior and is only populated when the intent came
// from the classifier; fallback matches carry no numeric confidence.
type Resolution struct {
	Intent     string
	State      State
	Confidence float64
}

// Thresholds are the cascade's empirically tuned gates; keep them
// configurable.
type Thresholds struct {
	// Accept is the classifier confidence at which its prediction is
	// terminal.
	Accept float64
	// Unknown is the floor below which a fallback miss forces the
	// unknown intent instead of keeping a weak classifier guess.
	Unknown float64
}

// Snapshot bundles everything one resolution reads: the corpus, the
// trained predictor and the fallback matcher. It is immutable; Reload
// publishes a complete replacement.
type Snapshot struct {
	Corpus    *corpus.Snapshot
	Predictor Classifier
	Matcher   matcher.SimilarityMatcher
}

type Resolver struct {
	norm       *nlp.Normalizer
	thresholds Thresholds
	snapshot   atomic.Pointer[Snapshot]
}

func New(norm *nlp.Normalizer, thresholds Thresholds, snapshot *Snapshot) *Resolver {
	r := &Resolver{norm: norm, thresholds: thresholds}
	r.snapshot.Store(snapshot)
	return r
}

// Swap atomically publishes a new snapshot. In-flight resolutions keep
// the snapshot they started with; they never observe a partial mix.
func (r *Resolver) Swap(snapshot *Snapshot) {
	r.snapshot.Store(snapshot)
	kind := "none"
	if snapshot.Matcher != nil {
		kind = snapshot.Matcher.Kind()
	}
	logger.Info("Resolver snapshot swapped",
		zap.Int("intents", snapshot.Corpus.Len()),
		zap.String("matcher", kind),
		zap.Bool("classifier", snapshot.Predictor != nil),
	)
}

// Current returns the live snapshot, for read surfaces like the admin
// API.
func (r *Resolver) Current() *Snapshot {
	return r.snapshot.Load()
}

// Resolve always terminates with an intent tag; stage failures and
// panics degrade to no-result for that stage, never an error.
func (r *Resolver) Resolve(ctx context.Context, message string) Resolution {
	return r.ResolveWith(ctx, r.snapshot.Load(), message)
}

// ResolveWith runs the cascade against a caller-held snapshot, so a
// turn that also reads the corpus (for response templates) sees one
// consistent snapshot even when a reload lands mid-turn.
func (r *Resolver) ResolveWith(ctx context.Context, snap *Snapshot, message string) Resolution {
	if r.norm.Normalize(message) == "" {
		return Resolution{Intent: corpus.TagUnknown, State: StateForcedUnknown}
	}

	tag, confidence := safePredict(snap.Predictor, message)

	if tag != "" && confidence >= r.thresholds.Accept {
		return Resolution{Intent: tag, State: StateClassifierAccepted, Confidence: confidence}
	}

	if matched, ok := safeMatch(ctx, snap.Matcher, message); ok {
		state := StateSemanticAccepted
		if snap.Matcher.Kind() == matcher.KindLexical {
			state = StateLexicalAccepted
		}
		return Resolution{Intent: matched, State: state}
	}

	if tag == "" || confidence < r.thresholds.Unknown {
		return Resolution{Intent: corpus.TagUnknown, State: StateForcedUnknown}
	}

	return Resolution{Intent: tag, State: StateClassifierFallback, Confidence: confidence}
}

func safePredict(p Classifier, message string) (tag string, confidence float64) {
	if p == nil {
		return "", 0.0
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Classifier stage panicked", zap.Any("panic", rec))
			tag, confidence = "", 0.0
		}
	}()
	return p.Predict(message)
}

func safeMatch(ctx context.Context, m matcher.SimilarityMatcher, message string) (tag string, ok bool) {
	if m == nil {
		return "", false
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Fallback stage panicked", zap.Any("panic", rec))
			tag, ok = "", false
		}
	}()
	return m.BestMatch(ctx, message)
}
