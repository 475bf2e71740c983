package kg

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// cosineSimilarity returns the cosine similarity of two equal-length
// vectors, or 0 if either is empty or zero-length comparison is impossible.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineSimilarity exposes cosineSimilarity for the thought-search path,
// which ranks thoughts by the same similarity measure as entity retrieval.
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}

// Search runs the two-stage retrieval behind search and the think
// injection planner: stage 1 is a brute-force cosine scan of every entity
// sharing the query's embedding dimension, stage 2 expands up to depth hops
// along outgoing edges from the stage-1 hits, applying edgeBoosts (the mode
// profile's per-relation multiplier map; an unlisted relation defaults to
// 1.0) against each traversed edge's relation. No SQLite vector extension
// is present anywhere in the dependency set this module draws from, so the
// scan runs in Go rather than in the database.
func Search(ctx context.Context, st *store.Store, queryEmbedding []float32, model string, topK, depth int, threshold float64, weights config.OrbitalWeights, mechanics config.OrbitalMechanicsConfig, edgeBoosts map[string]float64) ([]types.ScoredEntity, error) {
	if topK <= 0 {
		return nil, nil
	}
	dim := len(queryEmbedding)
	candidates, err := st.AllEntitiesWithDimension(model, dim)
	if err != nil {
		return nil, fmt.Errorf("load entity candidates: %w", err)
	}

	now := time.Now()
	scored := make([]types.ScoredEntity, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, e := range candidates {
		sim := cosineSimilarity(queryEmbedding, e.Embedding)
		if sim < threshold {
			continue
		}
		score := Orbit(e, sim, weights, mechanics, now)
		scored = append(scored, types.ScoredEntity{Entity: *e, Score: score, Similarity: sim, Hop: 0})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	for _, s := range scored {
		seen[s.Entity.ID] = true
	}

	if depth > 0 {
		expanded, err := expand(st, scored, seen, depth, edgeBoosts, now)
		if err != nil {
			return nil, err
		}
		scored = append(scored, expanded...)
	}

	touchIDs := make([]string, 0, len(scored))
	for _, s := range scored {
		touchIDs = append(touchIDs, s.Entity.ID)
	}
	if err := st.TouchEntityAccess(touchIDs, now); err != nil {
		return nil, fmt.Errorf("touch entity access: %w", err)
	}

	return scored, nil
}

// hopDecay is the per-hop attenuation factor from §4.D's
// `score_hop = score_parent × edge_boost × hop_decay`.
const hopDecay = 0.5

// edgeBoost looks up the mode profile's per-relation multiplier, defaulting
// to 1.0 for any relation the profile doesn't name.
func edgeBoost(boosts map[string]float64, relation string) float64 {
	if b, ok := boosts[relation]; ok {
		return b
	}
	return 1.0
}

// expand walks outgoing edges from the seed set up to depth hops. Each
// expanded entity's score is the parent's score times that edge's boost
// times hopDecay, so a direct hit outranks its neighbors whenever the
// relation's boost is below 2, and a mode-favored relation (e.g. "depends_on" in a debug profile) surfaces
// its targets ahead of a generic one.
func expand(st *store.Store, seeds []types.ScoredEntity, seen map[string]bool, depth int, edgeBoosts map[string]float64, now time.Time) ([]types.ScoredEntity, error) {
	var out []types.ScoredEntity
	frontier := seeds
	for hop := 1; hop <= depth; hop++ {
		var next []types.ScoredEntity
		for _, s := range frontier {
			edges, err := st.OutgoingEdges(s.Entity.ID)
			if err != nil {
				return nil, fmt.Errorf("outgoing edges for %s: %w", s.Entity.ID, err)
			}
			for _, edge := range edges {
				if seen[edge.TargetID] {
					continue
				}
				target, err := st.GetEntity(edge.TargetID)
				if err != nil {
					continue
				}
				attenuation := edgeBoost(edgeBoosts, edge.Relation) * hopDecay
				score := s.Score * attenuation
				scored := types.ScoredEntity{Entity: *target, Score: score, Similarity: s.Similarity * attenuation, Hop: hop, ViaEdge: edge.Relation}
				seen[edge.TargetID] = true
				out = append(out, scored)
				next = append(next, scored)
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return out, nil
}
