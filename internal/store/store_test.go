package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/orbitalmind/kernel/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernel.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	var version int
	if err := s2.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
}

func TestThoughtSaveFirstThenEmbed(t *testing.T) {
	s := newTestStore(t)

	th := &types.Thought{ID: "t1", Content: "hello", Status: types.ThoughtActive, EmbeddingStatus: types.EmbeddingPending}
	if err := s.InsertThought(th); err != nil {
		t.Fatalf("insert thought: %v", err)
	}

	got, err := s.GetThought("t1")
	if err != nil {
		t.Fatalf("get thought: %v", err)
	}
	if got.EmbeddingStatus != types.EmbeddingPending {
		t.Fatalf("expected pending, got %s", got.EmbeddingStatus)
	}

	if err := s.CompleteThoughtEmbedding("t1", []float32{0.1, 0.2, 0.3}, "model-a", 3); err != nil {
		t.Fatalf("complete embedding: %v", err)
	}
	got, err = s.GetThought("t1")
	if err != nil {
		t.Fatalf("get thought after complete: %v", err)
	}
	if got.EmbeddingStatus != types.EmbeddingComplete || len(got.Embedding) != 3 {
		t.Fatalf("expected complete 3-dim embedding, got status=%s dim=%d", got.EmbeddingStatus, len(got.Embedding))
	}
}

func TestEdgeRequiresExistingEntities(t *testing.T) {
	s := newTestStore(t)

	e1 := &types.KGEntity{ID: "e1", Name: "cache", Type: "concept"}
	if err := s.InsertEntity(e1); err != nil {
		t.Fatalf("insert entity: %v", err)
	}

	edge := &types.KGEdge{ID: "edge1", SourceID: "e1", TargetID: "does-not-exist", Relation: "relates_to"}
	if err := s.InsertEdge(edge); err == nil {
		t.Fatalf("expected error inserting edge with missing target")
	}
}

func TestPromotionIdempotentAcceptedAt(t *testing.T) {
	s := newTestStore(t)

	cand := &types.EntityCandidate{ID: "c1", Name: "LRU", Type: "concept", Confidence: 0.8, Status: types.CandidatePending}
	if err := s.InsertEntityCandidate(cand); err != nil {
		t.Fatalf("insert candidate: %v", err)
	}

	if err := s.SetEntityCandidateStatus("c1", types.CandidateApproved, "entity-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	first, err := s.GetEntityCandidate("c1")
	if err != nil {
		t.Fatalf("get after first approve: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := s.SetEntityCandidateStatus("c1", types.CandidateApproved, "entity-1"); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	second, err := s.GetEntityCandidate("c1")
	if err != nil {
		t.Fatalf("get after second approve: %v", err)
	}

	if !first.AcceptedAt.Equal(*second.AcceptedAt) {
		t.Fatalf("accepted_at changed on re-approval: %v -> %v", first.AcceptedAt, second.AcceptedAt)
	}
	if second.PromotedEntityID != "entity-1" {
		t.Fatalf("expected stable promoted entity id, got %s", second.PromotedEntityID)
	}
}

func TestJobCancelLeavesCompletedAtUnset(t *testing.T) {
	s := newTestStore(t)

	job := &types.AgentJob{ID: "j1", Tool: "call_gem", AgentInstance: "default", Prompt: "hi", Cwd: "/tmp"}
	if err := s.InsertJob(job); err != nil {
		t.Fatalf("insert job: %v", err)
	}
	claimed, err := s.ClaimNextQueuedJob()
	if err != nil || claimed == nil {
		t.Fatalf("claim job: %v", err)
	}
	if claimed.Status != types.JobRunning {
		t.Fatalf("expected running, got %s", claimed.Status)
	}

	if err := s.CancelJob("j1", 50*time.Millisecond); err != nil {
		t.Fatalf("cancel job: %v", err)
	}
	got, err := s.GetJob("j1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != types.JobCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.CompletedAt != nil {
		t.Fatalf("expected completed_at unset on cancel")
	}
	if got.Duration == 0 {
		t.Fatalf("expected duration recorded on cancel")
	}
}

func TestClaimNextQueuedJobEmpty(t *testing.T) {
	s := newTestStore(t)
	job, err := s.ClaimNextQueuedJob()
	if err != nil {
		t.Fatalf("claim on empty queue: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job on empty queue")
	}
}

func TestToolSessionAbsentUntilSet(t *testing.T) {
	s := newTestStore(t)
	ts, err := s.GetToolSession("call_gem", "default")
	if err != nil {
		t.Fatalf("get tool session: %v", err)
	}
	if ts != nil {
		t.Fatalf("expected no tool session initially")
	}

	if err := s.SetToolSession("call_gem", "default", "session-123"); err != nil {
		t.Fatalf("set tool session: %v", err)
	}
	ts, err = s.GetToolSession("call_gem", "default")
	if err != nil || ts == nil {
		t.Fatalf("expected tool session after set: %v", err)
	}
	if ts.LastSessionID != "session-123" {
		t.Fatalf("expected session-123, got %s", ts.LastSessionID)
	}
}
