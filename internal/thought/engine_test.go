package thought

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/kg"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

type fakeEmbedder struct {
	dim     int
	model   string
	failing bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failing {
		return nil, errors.New("provider down")
	}
	vec := make([]float32, f.dim)
	for i, r := range text {
		vec[i%f.dim] += float32(r % 5)
	}
	return vec, nil
}
func (f *fakeEmbedder) Model() string  { return f.model }
func (f *fakeEmbedder) Dimension() int { return f.dim }

func newEngine(t *testing.T, failing bool) *Engine {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kernel.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	emb := &fakeEmbedder{dim: 4, model: "fake", failing: failing}
	cfg := config.Default()
	kgEngine := kg.New(s, emb, cfg)
	return New(s, emb, kgEngine, cfg)
}

func TestThinkPersistsBeforeEmbedding(t *testing.T) {
	e := newEngine(t, false)
	result, err := e.Think(context.Background(), ThinkInput{Content: "The Cache is fast", Mode: types.ModeBuild, Scale: 1, SessionID: "s1"})
	if err != nil {
		t.Fatalf("think: %v", err)
	}
	if result.Thought.EmbeddingStatus != types.EmbeddingComplete {
		t.Fatalf("expected embedding complete, got %s", result.Thought.EmbeddingStatus)
	}

	got, err := e.Store.GetThought(result.Thought.ID)
	if err != nil {
		t.Fatalf("get thought: %v", err)
	}
	if got == nil {
		t.Fatalf("expected thought to be persisted")
	}
}

func TestThinkSurvivesEmbeddingFailure(t *testing.T) {
	e := newEngine(t, true)
	result, err := e.Think(context.Background(), ThinkInput{Content: "hello", Mode: types.ModeDebug, Scale: 1, SessionID: "s1"})
	if err != nil {
		t.Fatalf("think should not fail when embedding fails: %v", err)
	}
	if result.Thought.EmbeddingStatus != types.EmbeddingFailed {
		t.Fatalf("expected embedding failed status, got %s", result.Thought.EmbeddingStatus)
	}

	got, err := e.Store.GetThought(result.Thought.ID)
	if err != nil || got == nil {
		t.Fatalf("expected thought still persisted despite embedding failure: %v", err)
	}
}

func TestThinkRejectsInvalidMode(t *testing.T) {
	e := newEngine(t, false)
	_, err := e.Think(context.Background(), ThinkInput{Content: "x", Mode: types.Mode("not-a-mode"), Scale: 1})
	if err == nil {
		t.Fatalf("expected error for invalid mode")
	}
	if types.KindOf(err) != types.KindInvalidParams {
		t.Fatalf("expected KindInvalidParams, got %s", types.KindOf(err))
	}
}

func TestSearchRanksThoughtsBySimilarity(t *testing.T) {
	e := newEngine(t, false)

	near := &types.Thought{ID: "t1", Content: "Near", Status: types.ThoughtActive, EmbeddingStatus: types.EmbeddingPending}
	far := &types.Thought{ID: "t2", Content: "Far", Status: types.ThoughtActive, EmbeddingStatus: types.EmbeddingPending}
	if err := e.Store.InsertThought(near); err != nil {
		t.Fatalf("insert near: %v", err)
	}
	if err := e.Store.InsertThought(far); err != nil {
		t.Fatalf("insert far: %v", err)
	}
	if err := e.Store.CompleteThoughtEmbedding("t1", []float32{1, 0, 0, 0}, "fake", 4); err != nil {
		t.Fatalf("complete near embedding: %v", err)
	}
	if err := e.Store.CompleteThoughtEmbedding("t2", []float32{0, 1, 0, 0}, "fake", 4); err != nil {
		t.Fatalf("complete far embedding: %v", err)
	}

	results, err := e.Search([]float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 thoughts, got %d", len(results))
	}
	if results[0].Thought.ID != "t1" {
		t.Fatalf("expected the closer thought to rank first, got %s", results[0].Thought.ID)
	}
}

func TestRethinkRecordsCorrectionWithoutMutatingThought(t *testing.T) {
	e := newEngine(t, false)
	result, err := e.Think(context.Background(), ThinkInput{Content: "original", Mode: types.ModePlan, Scale: 1, SessionID: "s1"})
	if err != nil {
		t.Fatalf("think: %v", err)
	}

	if _, err := e.Rethink(result.Thought.ID, "actually this was wrong"); err != nil {
		t.Fatalf("rethink: %v", err)
	}

	still, err := e.Store.GetThought(result.Thought.ID)
	if err != nil {
		t.Fatalf("get thought: %v", err)
	}
	if still.Content != "original" {
		t.Fatalf("expected original content unchanged, got %q", still.Content)
	}

	corrections, err := e.Corrections(10)
	if err != nil {
		t.Fatalf("corrections: %v", err)
	}
	if len(corrections) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(corrections))
	}
}
