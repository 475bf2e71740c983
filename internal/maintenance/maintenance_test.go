package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

type fakeEmbedder struct {
	dim   int
	model string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(i + 1)
	}
	return vec, nil
}
func (f *fakeEmbedder) Model() string  { return f.model }
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

func TestEmbedPendingClearsBacklog(t *testing.T) {
	s := newTestStore(t)
	th := &types.Thought{ID: "t1", Content: "hello", Status: types.ThoughtActive, EmbeddingStatus: types.EmbeddingPending}
	if err := s.InsertThought(th); err != nil {
		t.Fatalf("insert thought: %v", err)
	}

	emb := &fakeEmbedder{dim: 4, model: "v2"}
	report, err := EmbedPending(context.Background(), s, emb, 0, false)
	if err != nil {
		t.Fatalf("embed pending: %v", err)
	}
	if report.Succeeded != 1 || report.Remaining != 0 {
		t.Fatalf("expected 1 succeeded, 0 remaining, got %+v", report)
	}
}

func TestEmbedPendingRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"t1", "t2", "t3"} {
		th := &types.Thought{ID: id, Content: "hello " + id, Status: types.ThoughtActive, EmbeddingStatus: types.EmbeddingPending}
		if err := s.InsertThought(th); err != nil {
			t.Fatalf("insert thought %s: %v", id, err)
		}
	}

	emb := &fakeEmbedder{dim: 4, model: "v2"}
	report, err := EmbedPending(context.Background(), s, emb, 1, false)
	if err != nil {
		t.Fatalf("embed pending: %v", err)
	}
	if report.Processed != 1 || report.Succeeded != 1 {
		t.Fatalf("expected limit=1 to process exactly one thought, got %+v", report)
	}
	if report.Remaining != 2 {
		t.Fatalf("expected 2 thoughts still pending, got %d", report.Remaining)
	}
}

func TestReembedThoughtsOnModelChange(t *testing.T) {
	s := newTestStore(t)
	th := &types.Thought{ID: "t1", Content: "hello", Status: types.ThoughtActive, EmbeddingStatus: types.EmbeddingComplete}
	if err := s.InsertThought(th); err != nil {
		t.Fatalf("insert thought: %v", err)
	}
	if err := s.CompleteThoughtEmbedding("t1", []float32{0.1, 0.2}, "old-model", 2); err != nil {
		t.Fatalf("complete embedding: %v", err)
	}

	emb := &fakeEmbedder{dim: 4, model: "new-model"}
	report, err := ReembedThoughts(context.Background(), s, emb, false)
	if err != nil {
		t.Fatalf("reembed: %v", err)
	}
	if report.Succeeded != 1 || report.Remaining != 0 {
		t.Fatalf("expected 1 succeeded, 0 remaining, got %+v", report)
	}
}

func TestReembedThoughtsDryRunReportsWithoutMutating(t *testing.T) {
	s := newTestStore(t)
	th := &types.Thought{ID: "t1", Content: "hello", Status: types.ThoughtActive, EmbeddingStatus: types.EmbeddingComplete}
	if err := s.InsertThought(th); err != nil {
		t.Fatalf("insert thought: %v", err)
	}
	if err := s.CompleteThoughtEmbedding("t1", []float32{0.1, 0.2}, "old-model", 2); err != nil {
		t.Fatalf("complete embedding: %v", err)
	}

	emb := &fakeEmbedder{dim: 4, model: "new-model"}
	report, err := ReembedThoughts(context.Background(), s, emb, true)
	if err != nil {
		t.Fatalf("dry-run reembed: %v", err)
	}
	if report.Processed != 1 || report.Succeeded != 0 {
		t.Fatalf("expected dry run to report without succeeding any, got %+v", report)
	}

	th2, err := s.GetThought("t1")
	if err != nil {
		t.Fatalf("get thought: %v", err)
	}
	if th2.EmbeddingModel != "old-model" {
		t.Fatalf("expected dry run to leave embedding model untouched, got %q", th2.EmbeddingModel)
	}

	second, err := ReembedThoughts(context.Background(), s, emb, true)
	if err != nil {
		t.Fatalf("second dry-run reembed: %v", err)
	}
	if second.Processed != report.Processed {
		t.Fatalf("expected idempotent dry-run count, got %d then %d", report.Processed, second.Processed)
	}
}

func TestSweepCandidatesAgesOutStale(t *testing.T) {
	s := newTestStore(t)
	cand := &types.EntityCandidate{ID: "c1", Name: "X", Type: "concept", Confidence: 0.3, Status: types.CandidatePending}
	if err := s.InsertEntityCandidate(cand); err != nil {
		t.Fatalf("insert candidate: %v", err)
	}

	time.Sleep(1100 * time.Millisecond) // clears SQLite's second-granularity CURRENT_TIMESTAMP
	report, err := SweepCandidates(s, 0, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Processed == 0 {
		t.Fatalf("expected at least one candidate aged out, got %+v", report)
	}
}

func TestSnapshotReportsHealth(t *testing.T) {
	s := newTestStore(t)
	emb := &fakeEmbedder{dim: 4, model: "v2"}
	health, err := Snapshot(s, emb)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if health.ThoughtsPendingEmbedding != 0 {
		t.Fatalf("expected 0 pending on empty store, got %d", health.ThoughtsPendingEmbedding)
	}
}
