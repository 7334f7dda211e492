package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripsPunctuationAndDigits(t *testing.T) {
	n := NewNormalizer()

	assert.Equal(t, "open ticket", n.Normalize("Open 12 tickets!!!"))
	assert.Equal(t, "hello", n.Normalize("Hello???"))
}

func TestNormalizeDropsStopwords(t *testing.T) {
	n := NewNormalizer()

	assert.Equal(t, "status order", n.Normalize("what is the status of my order"))
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := NewNormalizer()

	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("   \t\n"))
	assert.Equal(t, "", n.Normalize("123 !!! ???"))
	// Pure stopwords normalize to nothing as well.
	assert.Equal(t, "", n.Normalize("is it the"))
}

func TestNormalizeIsDeterministic(t *testing.T) {
	n := NewNormalizer()

	first := n.Normalize("Where are my packages?")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, n.Normalize("Where are my packages?"))
	}
}

func TestLemmatizeNouns(t *testing.T) {
	cases := map[string]string{
		"orders":    "order",
		"parties":   "party",
		"boxes":     "box",
		"glasses":   "glass",
		"children":  "child",
		"status":    "status",
		"analysis":  "analysis",
		"bus":       "bus",
		"greeting":  "greeting",
	}
	for in, want := range cases {
		assert.Equal(t, want, Lemmatize(in), "lemma of %q", in)
	}
}
