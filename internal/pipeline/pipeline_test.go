package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentbot/backend/internal/cache/redis"
	"github.com/intentbot/backend/internal/contextstore"
	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/internal/resolver"
	"github.com/intentbot/backend/internal/response"
	"github.com/intentbot/backend/internal/storage/models"
)

type fixedClassifier struct {
	tag        string
	confidence float64
	calls      int
}

func (f *fixedClassifier) Predict(string) (string, float64) {
	f.calls++
	return f.tag, f.confidence
}

type recordingStore struct {
	mu       sync.Mutex
	appended []string
	done     chan struct{}
	failures bool
}

func (r *recordingStore) EnsureConversation(conversationID, userID string) (string, error) {
	if r.failures {
		return "", errors.New("db down")
	}
	if conversationID != "" {
		return conversationID, nil
	}
	return "conv-1", nil
}

func (r *recordingStore) AppendTurn(conversationID, userMessage, intent, botResponse string) error {
	r.mu.Lock()
	r.appended = append(r.appended, userMessage)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return nil
}

type memoryCache struct {
	mu          sync.Mutex
	resolutions map[string]redis.Resolution
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{resolutions: make(map[string]redis.Resolution)}
}

func (m *memoryCache) GetResolution(_ context.Context, hash string) (*redis.Resolution, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.resolutions[hash]; ok {
		return &res, true, nil
	}
	return nil, false, nil
}

func (m *memoryCache) SetResolution(_ context.Context, hash string, res redis.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[hash] = res
	return nil
}

func (m *memoryCache) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions = make(map[string]redis.Resolution)
	m.invalidated++
	return nil
}

func pipelineCorpus(t *testing.T) *corpus.Snapshot {
	t.Helper()
	s, err := corpus.NewSnapshot([]models.Intent{
		{Tag: "greeting", Patterns: []string{"hello"}, Responses: []string{"Hello!"}},
		{Tag: "goodbye", Patterns: []string{"bye"}, Responses: []string{"Bye!"}},
	})
	require.NoError(t, err)
	return s
}

func newPipeline(t *testing.T, cls resolver.Classifier, store TurnStore, cache ResolutionCache) *Pipeline {
	t.Helper()
	norm := nlp.NewNormalizer()
	r := resolver.New(norm, resolver.Thresholds{Accept: 0.60, Unknown: 0.30}, &resolver.Snapshot{
		Corpus:    pipelineCorpus(t),
		Predictor: cls,
	})
	return New(Config{
		Norm:     norm,
		Resolver: r,
		Contexts: contextstore.New(10),
		Selector: response.NewSelector("Default reply."),
		Store:    store,
		Cache:    cache,
	})
}

func TestProcessHappyPath(t *testing.T) {
	store := &recordingStore{done: make(chan struct{}, 1)}
	p := newPipeline(t, &fixedClassifier{tag: "greeting", confidence: 0.95}, store, nil)

	result := p.Process(context.Background(), Turn{UserID: "u1", Message: "hello there"})

	assert.Equal(t, "greeting", result.Intent)
	assert.Equal(t, string(resolver.StateClassifierAccepted), result.State)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "Hello!", result.Response)
	assert.Equal(t, "conv-1", result.ConversationID)

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn was never persisted")
	}

	// Context reflects the completed turn.
	entries := p.contexts.Get("u1")
	require.Len(t, entries, 1)
	assert.Equal(t, "hello there", entries[0].Message)
	assert.Equal(t, "greeting", entries[0].Intent)
	assert.Equal(t, "Hello!", entries[0].Response)
}

func TestProcessUnknownUsesDefaultReply(t *testing.T) {
	p := newPipeline(t, &fixedClassifier{tag: "greeting", confidence: 0.10}, nil, nil)

	result := p.Process(context.Background(), Turn{UserID: "u1", Message: "gibberish nonsense"})

	assert.Equal(t, corpus.TagUnknown, result.Intent)
	assert.Equal(t, "Default reply.", result.Response)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestProcessSurvivesStoreFailure(t *testing.T) {
	p := newPipeline(t, &fixedClassifier{tag: "greeting", confidence: 0.95}, &recordingStore{failures: true}, nil)

	result := p.Process(context.Background(), Turn{UserID: "u1", Message: "hello"})

	assert.Equal(t, "greeting", result.Intent)
	assert.Equal(t, "Hello!", result.Response)
	assert.Empty(t, result.ConversationID)
}

func TestResolutionCacheRoundTrip(t *testing.T) {
	cls := &fixedClassifier{tag: "greeting", confidence: 0.95}
	cache := newMemoryCache()
	p := newPipeline(t, cls, nil, cache)

	first := p.Process(context.Background(), Turn{UserID: "u1", Message: "hello there"})
	second := p.Process(context.Background(), Turn{UserID: "u2", Message: "hello there"})

	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, 1, cls.calls, "second turn should hit the cache")
}

func TestReloadSwapsSnapshotAndInvalidatesCache(t *testing.T) {
	cache := newMemoryCache()
	p := newPipeline(t, &fixedClassifier{tag: "greeting", confidence: 0.95}, nil, cache)

	p.rebuild = func(context.Context) (*resolver.Snapshot, error) {
		return &resolver.Snapshot{
			Corpus:    pipelineCorpus(t),
			Predictor: &fixedClassifier{tag: "goodbye", confidence: 0.95},
		}, nil
	}

	p.Process(context.Background(), Turn{UserID: "u1", Message: "hello"})
	require.NoError(t, p.Reload(context.Background()))

	assert.Equal(t, 1, cache.invalidated)

	result := p.Process(context.Background(), Turn{UserID: "u1", Message: "hello again"})
	assert.Equal(t, "goodbye", result.Intent)
}

func TestReloadPropagatesBuildError(t *testing.T) {
	p := newPipeline(t, &fixedClassifier{tag: "greeting", confidence: 0.95}, nil, nil)
	p.rebuild = func(context.Context) (*resolver.Snapshot, error) {
		return nil, errors.New("corpus unreadable")
	}

	before := p.resolver.Current()
	assert.Error(t, p.Reload(context.Background()))
	assert.Same(t, before, p.resolver.Current(), "failed reload must not swap")
}

// swappingClassifier reloads the resolver mid-prediction, simulating a
// reload landing in the middle of a turn.
type swappingClassifier struct {
	r    *resolver.Resolver
	next *resolver.Snapshot
}

func (s *swappingClassifier) Predict(string) (string, float64) {
	s.r.Swap(s.next)
	return "greeting", 0.95
}

func TestTurnReadsOneSnapshot(t *testing.T) {
	norm := nlp.NewNormalizer()
	r := resolver.New(norm, resolver.Thresholds{Accept: 0.60, Unknown: 0.30}, nil)

	// The replacement corpus has no greeting intent at all.
	replacement, err := corpus.NewSnapshot([]models.Intent{
		{Tag: "farewell", Patterns: []string{"bye"}, Responses: []string{"Bye!"}},
	})
	require.NoError(t, err)

	cls := &swappingClassifier{r: r, next: &resolver.Snapshot{Corpus: replacement}}
	r.Swap(&resolver.Snapshot{Corpus: pipelineCorpus(t), Predictor: cls})

	p := New(Config{
		Norm:     norm,
		Resolver: r,
		Contexts: contextstore.New(10),
		Selector: response.NewSelector("Default reply."),
	})

	result := p.Process(context.Background(), Turn{UserID: "u1", Message: "hello"})

	// The reply template must come from the corpus that resolved the
	// intent, not the one published mid-turn.
	assert.Equal(t, "greeting", result.Intent)
	assert.Equal(t, "Hello!", result.Response)
}

type panickingStore struct{}

func (panickingStore) EnsureConversation(string, string) (string, error) { panic("boom") }
func (panickingStore) AppendTurn(string, string, string, string) error { panic("boom") }

func TestProcessTotalFailureYieldsErrorIntent(t *testing.T) {
	p := newPipeline(t, &fixedClassifier{tag: "greeting", confidence: 0.95}, panickingStore{}, nil)

	var result Result
	assert.NotPanics(t, func() {
		result = p.Process(context.Background(), Turn{UserID: "u1", Message: "hello"})
	})
	assert.Equal(t, corpus.TagError, result.Intent)
	assert.NotEmpty(t, result.Response)
}
