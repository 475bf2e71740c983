// Package kg implements the knowledge-graph lifecycle: deterministic
// candidate extraction from ingested thoughts, human moderation, idempotent
// promotion to first-class entities and edges, and orbital-mechanics scored
// retrieval over the promoted graph.
package kg

import (
	"context"
	"fmt"
	"log"

	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// Engine is the façade the thought ingestion path and the RPC layer use to
// reach extraction, moderation, promotion, and retrieval without wiring
// each one up individually.
type Engine struct {
	Store     *store.Store
	Embedding embedding.Client
	Config    *config.Config
}

// New builds a knowledge-graph engine over st, using emb for promotion-time
// embedding and cfg for orbital-mechanics weights.
func New(st *store.Store, emb embedding.Client, cfg *config.Config) *Engine {
	return &Engine{Store: st, Embedding: emb, Config: cfg}
}

// ExtractFromThought stages entity and edge candidates found in a thought's
// content. Extraction is synchronous and best-effort: a candidate staging
// failure is logged but never fails the calling think() operation, mirroring
// the save-first ingestion guarantee for embeddings.
func (e *Engine) ExtractFromThought(thoughtID, content string) {
	for _, c := range ExtractEntityCandidates(thoughtID, content) {
		if err := e.Store.InsertEntityCandidate(c); err != nil {
			log.Printf("[KG] failed to stage entity candidate %q: %v", c.Name, err)
		}
	}
	for _, c := range ExtractEdgeCandidates(thoughtID, content) {
		if err := e.Store.InsertEdgeCandidate(c); err != nil {
			log.Printf("[KG] failed to stage edge candidate %s->%s: %v", c.SourceName, c.TargetName, err)
		}
	}
}

// Retrieve runs scored retrieval for a query embedding at the given top_k
// and traversal depth. weights is the calling mode profile's orbital_weights
// triple; a zero-value triple falls back to the global orbital_mechanics
// weights. edgeBoosts is the mode profile's per-relation multiplier map
// (edge_boost); a nil or missing entry defaults to 1.0.
func (e *Engine) Retrieve(ctx context.Context, queryEmbedding []float32, topK, depth int, weights config.OrbitalWeights, edgeBoosts map[string]float64) ([]types.ScoredEntity, error) {
	if weights == (config.OrbitalWeights{}) {
		weights = e.Config.OrbitalMechanics.Weights
	}
	threshold := e.Config.Retrieval.SimilarityThreshold
	results, err := Search(ctx, e.Store, queryEmbedding, e.Embedding.Model(), topK, depth, threshold, weights, e.Config.OrbitalMechanics, edgeBoosts)
	if err != nil {
		return nil, fmt.Errorf("kg retrieve: %w", err)
	}
	return results, nil
}

// ApproveEntity promotes a pending entity candidate.
func (e *Engine) ApproveEntity(ctx context.Context, candidateID string) (*types.KGEntity, error) {
	return PromoteEntityCandidate(ctx, e.Store, e.Embedding, candidateID)
}

// ApproveEdge promotes a pending edge candidate. Edge endpoints must already
// be promoted entities.
func (e *Engine) ApproveEdge(candidateID string) (*types.KGEdge, error) {
	return PromoteEdgeCandidate(e.Store, candidateID)
}
