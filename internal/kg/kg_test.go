package kg

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

type fakeEmbedder struct {
	dim   int
	model string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for i, r := range text {
		vec[i%f.dim] += float32(r % 7)
	}
	return vec, nil
}
func (f *fakeEmbedder) Model() string { return f.model }
func (f *fakeEmbedder) Dimension() int { return f.dim }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kernel.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExtractEntityCandidatesFromQuotedAndCapitalized(t *testing.T) {
	content := `The Orbital Mechanics engine tracks "access frequency" per entity.`
	candidates := ExtractEntityCandidates("t1", content)
	if len(candidates) == 0 {
		t.Fatalf("expected at least one candidate")
	}
	foundQuoted := false
	for _, c := range candidates {
		if c.Name == "access frequency" {
			foundQuoted = true
			if c.Confidence < 0.6 {
				t.Fatalf("expected quoted term to have higher confidence, got %f", c.Confidence)
			}
		}
	}
	if !foundQuoted {
		t.Fatalf("expected quoted term candidate, got %+v", candidates)
	}
}

func TestExtractEdgeCandidatesRelationPattern(t *testing.T) {
	content := "The Cache uses the Eviction Policy to bound memory."
	edges := ExtractEdgeCandidates("t1", content)
	if len(edges) == 0 {
		t.Fatalf("expected at least one edge candidate")
	}
	if edges[0].Relation != "uses" {
		t.Fatalf("expected relation 'uses', got %q", edges[0].Relation)
	}
}

func TestPromotionIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	emb := &fakeEmbedder{dim: 4, model: "fake"}

	cand := &types.EntityCandidate{ID: "c1", Name: "LRU Cache", Type: "concept", Confidence: 0.6, Status: types.CandidatePending}
	if err := s.InsertEntityCandidate(cand); err != nil {
		t.Fatalf("insert candidate: %v", err)
	}

	first, err := PromoteEntityCandidate(context.Background(), s, emb, "c1")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	second, err := PromoteEntityCandidate(context.Background(), s, emb, "c1")
	if err != nil {
		t.Fatalf("re-promote: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected stable entity id across re-promotion, got %s vs %s", first.ID, second.ID)
	}
}

func TestEdgePromotionRequiresPromotedEndpoints(t *testing.T) {
	s := newTestStore(t)
	edgeCand := &types.EdgeCandidate{ID: "ec1", SourceName: "Alpha", TargetName: "Beta", Relation: "uses", Confidence: 0.5, Status: types.CandidatePending}
	if err := s.InsertEdgeCandidate(edgeCand); err != nil {
		t.Fatalf("insert edge candidate: %v", err)
	}
	if _, err := PromoteEdgeCandidate(s, "ec1"); err == nil {
		t.Fatalf("expected error promoting edge with unresolved endpoints")
	}
}

func TestRetrievalRanksBySimilarity(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	near := &types.KGEntity{ID: "e1", Name: "Near", Type: "concept", Embedding: []float32{1, 0, 0, 0}, EmbeddingModel: "fake", EmbeddingDim: 4, Mass: 1, LastAccessed: now}
	far := &types.KGEntity{ID: "e2", Name: "Far", Type: "concept", Embedding: []float32{0, 1, 0, 0}, EmbeddingModel: "fake", EmbeddingDim: 4, Mass: 1, LastAccessed: now}
	if err := s.InsertEntity(near); err != nil {
		t.Fatalf("insert near: %v", err)
	}
	if err := s.InsertEntity(far); err != nil {
		t.Fatalf("insert far: %v", err)
	}

	cfg := config.Default()
	results, err := Search(context.Background(), s, []float32{1, 0, 0, 0}, "fake", 5, 0, 0.0, cfg.OrbitalMechanics.Weights, cfg.OrbitalMechanics, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entity.ID != "e1" {
		t.Fatalf("expected Near to rank first, got %s", results[0].Entity.ID)
	}
}

func TestGraphExpansionAppliesModeEdgeBoost(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	seed := &types.KGEntity{ID: "e1", Name: "Seed", Type: "concept", Embedding: []float32{1, 0, 0, 0}, EmbeddingModel: "fake", EmbeddingDim: 4, Mass: 1, LastAccessed: now}
	boosted := &types.KGEntity{ID: "e2", Name: "Boosted", Type: "concept", Embedding: []float32{0, 0, 0, 1}, EmbeddingModel: "fake", EmbeddingDim: 4, Mass: 1, LastAccessed: now}
	plain := &types.KGEntity{ID: "e3", Name: "Plain", Type: "concept", Embedding: []float32{0, 0, 0, 1}, EmbeddingModel: "fake", EmbeddingDim: 4, Mass: 1, LastAccessed: now}
	for _, e := range []*types.KGEntity{seed, boosted, plain} {
		if err := s.InsertEntity(e); err != nil {
			t.Fatalf("insert entity: %v", err)
		}
	}
	if err := s.InsertEdge(&types.KGEdge{ID: "edge1", SourceID: "e1", TargetID: "e2", Relation: "depends_on"}); err != nil {
		t.Fatalf("insert edge: %v", err)
	}
	if err := s.InsertEdge(&types.KGEdge{ID: "edge2", SourceID: "e1", TargetID: "e3", Relation: "mentions"}); err != nil {
		t.Fatalf("insert edge: %v", err)
	}

	cfg := config.Default()
	boosts := map[string]float64{"depends_on": 2.0}
	results, err := Search(context.Background(), s, []float32{1, 0, 0, 0}, "fake", 1, 1, 0.0, cfg.OrbitalMechanics.Weights, cfg.OrbitalMechanics, boosts)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var boostedScore, plainScore float64
	for _, r := range results {
		switch r.Entity.ID {
		case "e2":
			boostedScore = r.Score
		case "e3":
			plainScore = r.Score
		}
	}
	if boostedScore <= plainScore {
		t.Fatalf("expected depends_on edge_boost to outscore the unboosted relation: boosted=%f plain=%f", boostedScore, plainScore)
	}
}
