// Package pipeline coordinates one chat turn end to end: resolve the
// intent, update per-user context, compose the reply, and persist the
// turn. It owns no decision logic of its own.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/cache/redis"
	"github.com/intentbot/backend/internal/contextstore"
	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/metrics"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/internal/resolver"
	"github.com/intentbot/backend/internal/response"
	"github.com/intentbot/backend/pkg/logger"
	"github.com/intentbot/backend/pkg/utils"
)

const errorReply = "Sorry, something went wrong while processing your message. Please try again."

// TurnStore persists completed turns; the sqlite client implements it.
type TurnStore interface {
	EnsureConversation(conversationID, userID string) (string, error)
	AppendTurn(conversationID, userMessage, intent, botResponse string) error
}

// ResolutionCache short-circuits the cascade for repeated messages;
// the redis client implements it.
type ResolutionCache interface {
	GetResolution(ctx context.Context, queryHash string) (*redis.Resolution, bool, error)
	SetResolution(ctx context.Context, queryHash string, res redis.Resolution) error
	Invalidate(ctx context.Context) error
}

// RebuildFunc produces a fresh resolver snapshot, used by Reload.
type RebuildFunc func(ctx context.Context) (*resolver.Snapshot, error)

// Turn is one inbound chat message.
type Turn struct {
	UserID         string
	ConversationID string
	Message        string
	Name           string
	Transport      string
}

// Result is the reply surface handed back to transports.
type Result struct {
	ConversationID string  `json:"conversation_id,omitempty"`
	Intent         string  `json:"intent"`
	State          string  `json:"state"`
	Confidence     float64 `json:"confidence"`
	Response       string  `json:"response"`
}

type Pipeline struct {
	norm     *nlp.Normalizer
	resolver *resolver.Resolver
	contexts *contextstore.Store
	selector *response.Selector
	store    TurnStore
	cache    ResolutionCache
	rebuild  RebuildFunc
}

// Config wires the pipeline. Store, Cache and Rebuild are optional;
// nil disables persistence, caching and reload respectively.
type Config struct {
	Norm     *nlp.Normalizer
	Resolver *resolver.Resolver
	Contexts *contextstore.Store
	Selector *response.Selector
	Store    TurnStore
	Cache    ResolutionCache
	Rebuild  RebuildFunc
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		norm:     cfg.Norm,
		resolver: cfg.Resolver,
		contexts: cfg.Contexts,
		selector: cfg.Selector,
		store:    cfg.Store,
		cache:    cfg.Cache,
		rebuild:  cfg.Rebuild,
	}
}

// Process runs one turn. It never returns an error to the caller: a
// total failure resolves to the reserved error tag with an apologetic
// reply.
func (p *Pipeline) Process(ctx context.Context, turn Turn) (result Result) {
	start := time.Now()
	transport := turn.Transport
	if transport == "" {
		transport = "http"
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Turn processing failed",
				zap.Any("panic", rec),
				zap.String("user_id", turn.UserID),
			)
			result = Result{Intent: corpus.TagError, Response: errorReply}
		}
		metrics.TurnDuration.WithLabelValues(transport).Observe(time.Since(start).Seconds())
	}()

	// One snapshot serves the whole turn: the corpus that resolved the
	// intent is the corpus the reply template comes from, even when a
	// reload lands mid-turn.
	snap := p.resolver.Current()
	res := p.resolve(ctx, snap, turn.Message)

	metrics.ResolutionsTotal.WithLabelValues(string(res.State)).Inc()
	metrics.IntentTotal.WithLabelValues(res.Intent).Inc()
	if res.State == resolver.StateClassifierAccepted || res.State == resolver.StateClassifierFallback {
		metrics.ClassifierConfidence.Observe(res.Confidence)
	}

	reply := p.selector.Generate(snap.Corpus, res.Intent, response.Context{
		Name:    turn.Name,
		History: p.contexts.Get(turn.UserID),
	})

	p.contexts.Update(turn.UserID, turn.Message, res.Intent, reply)

	result = Result{
		Intent:     res.Intent,
		State:      string(res.State),
		Confidence: res.Confidence,
		Response:   reply,
	}

	if p.store != nil {
		conversationID, err := p.store.EnsureConversation(turn.ConversationID, turn.UserID)
		if err != nil {
			logger.Warn("Failed to resolve conversation", zap.Error(err))
		} else {
			result.ConversationID = conversationID
			// Persistence is off the reply path; a write failure must
			// not fail the turn.
			go func(message, intent, reply string) {
				if err := p.store.AppendTurn(conversationID, message, intent, reply); err != nil {
					logger.Warn("Failed to persist turn",
						zap.String("conversation_id", conversationID),
						zap.Error(err),
					)
				}
			}(turn.Message, res.Intent, reply)
		}
	}

	return result
}

// resolve consults the resolution cache before running the cascade on
// the turn's snapshot. Replies are composed fresh either way; only the
// resolved intent is cacheable.
func (p *Pipeline) resolve(ctx context.Context, snap *resolver.Snapshot, message string) resolver.Resolution {
	hash := ""
	if p.cache != nil {
		if normalized := p.norm.Normalize(message); normalized != "" {
			hash = utils.HashString(normalized)
			cached, ok, err := p.cache.GetResolution(ctx, hash)
			if err != nil {
				logger.Warn("Resolution cache read failed", zap.Error(err))
			} else if ok {
				metrics.CacheHits.WithLabelValues("resolution").Inc()
				return resolver.Resolution{
					Intent:     cached.Intent,
					State:      resolver.State(cached.State),
					Confidence: cached.Confidence,
				}
			} else {
				metrics.CacheMisses.WithLabelValues("resolution").Inc()
			}
		}
	}

	res := p.resolver.ResolveWith(ctx, snap, message)

	if p.cache != nil && hash != "" {
		err := p.cache.SetResolution(ctx, hash, redis.Resolution{
			Intent:     res.Intent,
			State:      string(res.State),
			Confidence: res.Confidence,
		})
		if err != nil {
			logger.Warn("Resolution cache write failed", zap.Error(err))
		}
	}

	return res
}

// Reload builds a fresh snapshot, publishes it atomically and drops
// cached resolutions. In-flight turns finish on the old snapshot.
func (p *Pipeline) Reload(ctx context.Context) error {
	if p.rebuild == nil {
		return nil
	}

	snapshot, err := p.rebuild(ctx)
	if err != nil {
		metrics.SnapshotReloads.WithLabelValues("error").Inc()
		return err
	}

	p.resolver.Swap(snapshot)
	metrics.SnapshotReloads.WithLabelValues("ok").Inc()
	metrics.CorpusIntents.Set(float64(snapshot.Corpus.Len()))

	if p.cache != nil {
		if err := p.cache.Invalidate(ctx); err != nil {
			logger.Warn("Resolution cache invalidation failed", zap.Error(err))
		}
	}

	return nil
}
