// Package corpus holds the read-only tag/pattern/response snapshot the
// cascade resolves against. A snapshot is built once, validated, and
// never mutated; reloads build a fresh snapshot off to the side and
// publish it atomically at the resolver.
package corpus

import (
	"fmt"

	"github.com/intentbot/backend/internal/storage/models"
)

// TagUnknown is the reserved intent for out-of-domain input; TagError
// is reserved for turns the pipeline failed to process at all.
const (
	TagUnknown = "unknown"
	TagError   = "error"
)

// Pattern is one training example with its owning intent.
type Pattern struct {
	Text string
	Tag  string
}

type Snapshot struct {
	intents  []models.Intent
	byTag    map[string]int
	patterns []Pattern
}

// NewSnapshot validates and freezes a corpus: unique tags, at least one
// pattern and one response per intent. Pattern order follows corpus
// order, which makes the fallback matchers' first-max tie-break stable.
func NewSnapshot(intents []models.Intent) (*Snapshot, error) {
	s := &Snapshot{
		intents: intents,
		byTag:   make(map[string]int, len(intents)),
	}

	for i, intent := range intents {
		if intent.Tag == "" {
			return nil, fmt.Errorf("corpus entry %d has an empty tag", i)
		}
		if _, dup := s.byTag[intent.Tag]; dup {
			return nil, fmt.Errorf("duplicate intent tag %q", intent.Tag)
		}
		if len(intent.Patterns) == 0 {
			return nil, fmt.Errorf("intent %q has no patterns", intent.Tag)
		}
		if len(intent.Responses) == 0 {
			return nil, fmt.Errorf("intent %q has no responses", intent.Tag)
		}
		s.byTag[intent.Tag] = i
		for _, p := range intent.Patterns {
			s.patterns = append(s.patterns, Pattern{Text: p, Tag: intent.Tag})
		}
	}

	return s, nil
}

// Intents returns the corpus entries in stable order. Callers must not
// mutate the result.
func (s *Snapshot) Intents() []models.Intent {
	return s.intents
}

// Patterns returns every (pattern, tag) pair in stable corpus order.
func (s *Snapshot) Patterns() []Pattern {
	return s.patterns
}

// Responses returns the reply templates for tag, or nil when the tag is
// not in the corpus.
func (s *Snapshot) Responses(tag string) []string {
	i, ok := s.byTag[tag]
	if !ok {
		return nil
	}
	return s.intents[i].Responses
}

// Has reports whether tag exists in the corpus.
func (s *Snapshot) Has(tag string) bool {
	_, ok := s.byTag[tag]
	return ok
}

// Len returns the number of intents.
func (s *Snapshot) Len() int {
	return len(s.intents)
}
