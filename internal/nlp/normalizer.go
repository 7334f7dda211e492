package nlp

import (
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

var nonLetters = regexp.MustCompile(`[^a-z\s]+`)

// Normalizer cleans free text into the canonical form shared by the
// trainer, the classifier and the fallback matchers: lowercase, letters
// only, tokenized, stopwords removed, lemmatized, space-joined.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize is deterministic and side-effect free. Empty or
// whitespace-only input yields the empty string, which every downstream
// stage treats as no-signal.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Tokens returns the normalized token sequence for text.
func (n *Normalizer) Tokens(text string) []string {
	cleaned := strings.ToLower(text)
	cleaned = nonLetters.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}

	tokens := tokenize(cleaned)

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" || isStopword(tok) {
			continue
		}
		out = append(out, Lemmatize(tok))
	}
	return out
}

func tokenize(text string) []string {
	doc, err := prose.NewDocument(
		text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		// Punctuation is already stripped, so whitespace splitting is
		// an equivalent degraded path.
		return strings.Fields(text)
	}

	tokens := doc.Tokens()
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Text)
	}
	return out
}
