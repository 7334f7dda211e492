// Package matcher implements the fallback stages of the cascade. A
// resolver holds exactly one SimilarityMatcher, chosen at snapshot
// build by backend availability: embeddings when an API key is
// configured, TF-IDF cosine when only the trained vectorizer exists,
// and lexical token overlap as the last resort.
package matcher

import "context"

const (
	KindSemantic = "semantic"
	KindLexical  = "lexical"
)

// SimilarityMatcher finds the best-matching intent for a raw message,
// or reports no match. Implementations carry their own fixed threshold
// and never return an error: a failed backend call is a non-match.
type SimilarityMatcher interface {
	// Kind reports which cascade stage this matcher implements,
	// KindSemantic or KindLexical.
	Kind() string
	BestMatch(ctx context.Context, message string) (tag string, ok bool)
}
