// Package response picks a reply template for a resolved intent and
// fills in dynamic placeholders.
package response

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/intentbot/backend/internal/contextstore"
	"github.com/intentbot/backend/internal/corpus"
)

// Context carries the per-user state available for personalization.
// Name is optional; when absent the {name} placeholder stays literal.
type Context struct {
	Name    string
	History []contextstore.Entry
}

// Selector chooses uniformly among an intent's templates and falls
// back to a single configured default when the tag has none. The clock
// and RNG are injectable for tests.
type Selector struct {
	defaultResponse string
	now             func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(defaultResponse string) *Selector {
	return &Selector{
		defaultResponse: defaultResponse,
		now:             time.Now,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate returns the reply for a resolved intent. Unknown tags and
// empty template sets produce the default response, which goes through
// the same placeholder substitution.
func (s *Selector) Generate(snapshot *corpus.Snapshot, tag string, ctx Context) string {
	template := s.defaultResponse
	if snapshot != nil {
		if templates := snapshot.Responses(tag); len(templates) > 0 {
			template = templates[s.pick(len(templates))]
		}
	}
	return s.substitute(template, ctx)
}

func (s *Selector) pick(n int) int {
	if n == 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// substitute replaces the recognized placeholders verbatim and leaves
// everything else, including unrecognized {braced} text, untouched.
func (s *Selector) substitute(template string, ctx Context) string {
	now := s.now()

	out := strings.ReplaceAll(template, "{time}", now.Format("15:04"))
	out = strings.ReplaceAll(out, "{date}", now.Format("2006-01-02"))
	if ctx.Name != "" {
		out = strings.ReplaceAll(out, "{name}", ctx.Name)
	}
	return out
}
