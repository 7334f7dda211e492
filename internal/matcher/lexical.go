package matcher

import (
	"context"
	"strings"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/nlp"
)

type lexicalPattern struct {
	raw    string
	tokens map[string]struct{}
	count  int
	tag    string
}

// LexicalMatcher is the degraded-mode safety net: exact
// case-insensitive pattern equality first, then normalized token
// overlap scored against the pattern's token count.
type LexicalMatcher struct {
	norm     *nlp.Normalizer
	patterns []lexicalPattern
	overlap  float64
}

func NewLexicalMatcher(norm *nlp.Normalizer, snapshot *corpus.Snapshot, overlap float64) *LexicalMatcher {
	m := &LexicalMatcher{norm: norm, overlap: overlap}

	for _, p := range snapshot.Patterns() {
		tokens := norm.Tokens(p.Text)
		set := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			set[tok] = struct{}{}
		}
		m.patterns = append(m.patterns, lexicalPattern{
			raw:    strings.ToLower(p.Text),
			tokens: set,
			count:  len(tokens),
			tag:    p.Tag,
		})
	}

	return m
}

func (m *LexicalMatcher) Kind() string {
	return KindLexical
}

func (m *LexicalMatcher) BestMatch(_ context.Context, message string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return "", false
	}

	for _, p := range m.patterns {
		if lower == p.raw {
			return p.tag, true
		}
	}

	tokens := m.norm.Tokens(message)
	if len(tokens) == 0 {
		return "", false
	}

	bestTag := ""
	bestScore := 0.0
	for _, p := range m.patterns {
		if p.count == 0 {
			continue
		}
		matches := 0
		for _, tok := range tokens {
			if _, ok := p.tokens[tok]; ok {
				matches++
			}
		}
		score := float64(matches) / float64(p.count)
		if score > bestScore {
			bestScore = score
			bestTag = p.tag
		}
	}

	if bestScore > m.overlap {
		return bestTag, true
	}
	return "", false
}
