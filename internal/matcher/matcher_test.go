package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/embedding"
	"github.com/intentbot/backend/internal/model"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/internal/storage/models"
)

func testSnapshot(t *testing.T) *corpus.Snapshot {
	t.Helper()
	s, err := corpus.NewSnapshot([]models.Intent{
		{Tag: "greeting", Patterns: []string{"hello", "good morning"}, Responses: []string{"Hello!"}},
		{Tag: "goodbye", Patterns: []string{"see you later", "goodbye"}, Responses: []string{"Bye!"}},
		{Tag: "order_status", Patterns: []string{"where is my order", "track my package"}, Responses: []string{"Checking."}},
	})
	require.NoError(t, err)
	return s
}

func TestLexicalExactMatch(t *testing.T) {
	m := NewLexicalMatcher(nlp.NewNormalizer(), testSnapshot(t), 0.5)
	assert.Equal(t, KindLexical, m.Kind())

	tag, ok := m.BestMatch(context.Background(), "Good Morning")
	assert.True(t, ok)
	assert.Equal(t, "greeting", tag)

	// Exact equality wins before overlap scoring.
	tag, ok = m.BestMatch(context.Background(), "SEE YOU LATER")
	assert.True(t, ok)
	assert.Equal(t, "goodbye", tag)
}

func TestLexicalOverlapMatch(t *testing.T) {
	m := NewLexicalMatcher(nlp.NewNormalizer(), testSnapshot(t), 0.5)

	// "where is my order today" fully covers the normalized pattern
	// tokens, so the overlap score clears the threshold.
	tag, ok := m.BestMatch(context.Background(), "where is my order today")
	assert.True(t, ok)
	assert.Equal(t, "order_status", tag)
}

func TestLexicalNoMatch(t *testing.T) {
	m := NewLexicalMatcher(nlp.NewNormalizer(), testSnapshot(t), 0.5)

	_, ok := m.BestMatch(context.Background(), "completely unrelated utterance about volcanoes")
	assert.False(t, ok)

	_, ok = m.BestMatch(context.Background(), "")
	assert.False(t, ok)

	_, ok = m.BestMatch(context.Background(), "!!! 123")
	assert.False(t, ok)
}

func TestLexicalRoundTripAllPatterns(t *testing.T) {
	s := testSnapshot(t)
	m := NewLexicalMatcher(nlp.NewNormalizer(), s, 0.5)

	for _, p := range s.Patterns() {
		tag, ok := m.BestMatch(context.Background(), p.Text)
		assert.True(t, ok, "pattern %q", p.Text)
		assert.Equal(t, p.Tag, tag, "pattern %q", p.Text)
	}
}

func fitVectorizer(t *testing.T, s *corpus.Snapshot) *model.Vectorizer {
	t.Helper()
	norm := nlp.NewNormalizer()

	var docs []string
	for _, p := range s.Patterns() {
		docs = append(docs, norm.Normalize(p.Text))
	}
	vec := model.NewVectorizer("test", 5000)
	vec.Fit(docs)
	return vec
}

func TestVectorizerMatcher(t *testing.T) {
	s := testSnapshot(t)
	m := NewVectorizerMatcher(nlp.NewNormalizer(), fitVectorizer(t, s), s, 0.4)
	assert.Equal(t, KindSemantic, m.Kind())

	tag, ok := m.BestMatch(context.Background(), "where is my order")
	assert.True(t, ok)
	assert.Equal(t, "order_status", tag)

	_, ok = m.BestMatch(context.Background(), "volcano eruption news")
	assert.False(t, ok)

	_, ok = m.BestMatch(context.Background(), "   ")
	assert.False(t, ok)
}

func TestVectorizerMatcherRoundTrip(t *testing.T) {
	s := testSnapshot(t)
	m := NewVectorizerMatcher(nlp.NewNormalizer(), fitVectorizer(t, s), s, 0.4)

	for _, p := range s.Patterns() {
		tag, ok := m.BestMatch(context.Background(), p.Text)
		assert.True(t, ok, "pattern %q", p.Text)
		assert.Equal(t, p.Tag, tag, "pattern %q", p.Text)
	}
}

// fakeEmbedder maps known phrases onto fixed unit vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestEmbeddingMatcher(t *testing.T) {
	s := testSnapshot(t)
	fake := &fakeEmbedder{vectors: map[string][]float32{
		"hello":             {1, 0, 0},
		"good morning":      {0.9, 0.1, 0},
		"see you later":     {0, 1, 0},
		"goodbye":           {0.1, 0.9, 0},
		"where is my order": {0.5, 0.5, 0},
		"track my package":  {0.6, 0.4, 0},
		"hiya":              {0.95, 0.05, 0},
	}}
	for _, v := range fake.vectors {
		embedding.Normalize(v)
	}

	m, err := BuildEmbeddingMatcher(context.Background(), fake, nil, s, 0.4)
	require.NoError(t, err)
	assert.Equal(t, KindSemantic, m.Kind())

	tag, ok := m.BestMatch(context.Background(), "hiya")
	assert.True(t, ok)
	assert.Equal(t, "greeting", tag)

	// Orthogonal query scores below threshold everywhere.
	_, ok = m.BestMatch(context.Background(), "no such phrase")
	assert.False(t, ok)
}

func TestEmbeddingMatcherBackendFailure(t *testing.T) {
	s := testSnapshot(t)
	good := &fakeEmbedder{vectors: map[string][]float32{}}

	m, err := BuildEmbeddingMatcher(context.Background(), good, nil, s, 0.4)
	require.NoError(t, err)

	// A failing embed call is a non-match, never an error.
	m.embedder = &fakeEmbedder{err: errors.New("backend down")}
	_, ok := m.BestMatch(context.Background(), "hello")
	assert.False(t, ok)
}

func TestBuildEmbeddingMatcherPropagatesBatchError(t *testing.T) {
	_, err := BuildEmbeddingMatcher(context.Background(), &fakeEmbedder{err: errors.New("boom")}, nil, testSnapshot(t), 0.4)
	assert.Error(t, err)
}
