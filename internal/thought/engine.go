// Package thought implements the think() ingestion path: save the thought
// first, request its embedding, extract knowledge-graph candidates, and run
// the injection planner — in that order, with embedding failure never
// blocking the rest.
package thought

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/injection"
	"github.com/orbitalmind/kernel/internal/kg"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// Engine wires the store, embedding client, knowledge-graph engine, and
// config together behind the think()/rethink() operations.
type Engine struct {
	Store     *store.Store
	Embedding embedding.Client
	KG        *kg.Engine
	Config    *config.Config
}

// New builds a thought engine.
func New(st *store.Store, emb embedding.Client, kgEngine *kg.Engine, cfg *config.Config) *Engine {
	return &Engine{Store: st, Embedding: emb, KG: kgEngine, Config: cfg}
}

// ThinkInput is the think() request payload.
type ThinkInput struct {
	Content   string
	Mode      types.Mode
	Scale     types.InjectionScale
	SessionID string
}

// ThinkResult is what think() returns: the persisted thought plus any
// injected context.
type ThinkResult struct {
	Thought         *types.Thought
	InjectedContext string
	RetrievedCount  int
	Warning         string `json:"warning,omitempty"`
}

// Think persists a new thought, requests its embedding (failure here is
// recorded but not fatal), stages knowledge-graph candidates from its
// content, and runs the injection planner for the given mode/scale.
func (e *Engine) Think(ctx context.Context, in ThinkInput) (*ThinkResult, error) {
	if !in.Mode.Valid() {
		return nil, types.NewError(types.KindInvalidParams, fmt.Sprintf("invalid mode %q", in.Mode), nil)
	}
	if !in.Scale.Valid() {
		return nil, types.NewError(types.KindInvalidParams, fmt.Sprintf("invalid injection scale %d", in.Scale), nil)
	}

	profile := e.Config.Profile(in.Mode)

	th := &types.Thought{
		ID:              uuid.NewString(),
		Content:         in.Content,
		Status:          types.ThoughtActive,
		Significance:    profile.Significance,
		LastAccessed:    time.Now(),
		EmbeddingStatus: types.EmbeddingPending,
		SessionID:       in.SessionID,
	}

	if prior, err := e.Store.LatestThoughtForSession(in.SessionID); err == nil && prior != nil {
		th.ContinuityOf = prior.ID
	}

	if err := e.Store.InsertThought(th); err != nil {
		return nil, types.NewError(types.KindStoreError, "persist thought", err)
	}

	var warning string
	if werr := e.embedThought(ctx, th); werr != "" {
		warning = werr
	}

	if profile.AutoExtract {
		e.KG.ExtractFromThought(th.ID, th.Content)
	}

	scale := in.Scale
	if scale == 0 {
		scale = types.InjectionScale(profile.InjectionScale)
	}
	plan, err := injection.Resolve(e.Config, in.Mode, scale)
	if err != nil {
		return nil, types.NewError(types.KindInvalidParams, "resolve injection plan", err)
	}

	injected, results, err := injection.Inject(ctx, e.KG, e.Embedding, plan, in.Content)
	if err != nil {
		log.Printf("[THOUGHT] injection failed for thought %s: %v", th.ID, err)
		injected = ""
	}

	return &ThinkResult{Thought: th, InjectedContext: injected, RetrievedCount: len(results), Warning: warning}, nil
}

// embedThought requests the thought's embedding and records the outcome,
// returning a caller-facing warning when the embed failed. A failed embed
// leaves the thought row intact with embedding_status "failed"; it never
// unwinds the insert already committed above.
func (e *Engine) embedThought(ctx context.Context, th *types.Thought) string {
	vec, err := e.Embedding.Embed(ctx, th.Content)
	if err != nil {
		log.Printf("[THOUGHT] embedding failed for thought %s: %v", th.ID, err)
		if ferr := e.Store.FailThoughtEmbedding(th.ID); ferr != nil {
			log.Printf("[THOUGHT] failed to record embedding failure for thought %s: %v", th.ID, ferr)
		}
		th.EmbeddingStatus = types.EmbeddingFailed
		return fmt.Sprintf("embedding failed, thought saved without a vector: %v", err)
	}
	if err := e.Store.CompleteThoughtEmbedding(th.ID, vec, e.Embedding.Model(), e.Embedding.Dimension()); err != nil {
		log.Printf("[THOUGHT] failed to persist embedding for thought %s: %v", th.ID, err)
		return fmt.Sprintf("embedding succeeded but could not be persisted: %v", err)
	}
	th.Embedding = vec
	th.EmbeddingModel = e.Embedding.Model()
	th.EmbeddingDim = e.Embedding.Dimension()
	th.EmbeddingStatus = types.EmbeddingComplete
	return ""
}

// Rethink records a correction against a prior thought without mutating or
// deleting it — the kernel's memory is append-only; corrections are new
// facts about old facts, not edits.
func (e *Engine) Rethink(thoughtID, reason string) (*types.ThoughtCorrection, error) {
	th, err := e.Store.GetThought(thoughtID)
	if err != nil {
		return nil, types.NewError(types.KindStoreError, "load thought", err)
	}
	if th == nil {
		return nil, types.NewError(types.KindInvalidParams, fmt.Sprintf("thought %s not found", thoughtID), nil)
	}

	c := &types.ThoughtCorrection{ID: uuid.NewString(), ThoughtID: thoughtID, Reason: reason}
	if err := e.Store.InsertCorrection(c); err != nil {
		return nil, types.NewError(types.KindStoreError, "persist correction", err)
	}
	return c, nil
}

// Search runs a cosine-similarity scan over embedded, active thoughts for
// queryEmbedding, returning the topK best matches ranked by similarity. This
// is the thought half of search()'s "KG + thoughts unified" contract; the
// caller combines it with kg.Engine.Retrieve's knowledge-graph results.
func (e *Engine) Search(queryEmbedding []float32, topK int) ([]types.ScoredThought, error) {
	if topK <= 0 {
		return nil, nil
	}
	candidates, err := e.Store.AllThoughtsWithDimension(e.Embedding.Model(), len(queryEmbedding))
	if err != nil {
		return nil, types.NewError(types.KindStoreError, "load thoughts for search", err)
	}

	scored := make([]types.ScoredThought, 0, len(candidates))
	for _, t := range candidates {
		sim := kg.CosineSimilarity(queryEmbedding, t.Embedding)
		scored = append(scored, types.ScoredThought{Thought: *t, Similarity: sim})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if len(scored) > topK {
		scored = scored[:topK]
	}

	ids := make([]string, 0, len(scored))
	for _, s := range scored {
		ids = append(ids, s.Thought.ID)
	}
	if err := e.Store.TouchThoughtAccess(ids, time.Now()); err != nil {
		return nil, types.NewError(types.KindStoreError, "touch thought access", err)
	}
	return scored, nil
}

// Corrections lists the most recent thought corrections.
func (e *Engine) Corrections(limit int) ([]*types.ThoughtCorrection, error) {
	cs, err := e.Store.ListCorrections(limit)
	if err != nil {
		return nil, types.NewError(types.KindStoreError, "list corrections", err)
	}
	return cs, nil
}
