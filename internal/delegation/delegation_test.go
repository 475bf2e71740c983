package delegation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kernel.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnqueueRejectsUnknownTool(t *testing.T) {
	s := newTestStore(t)
	_, err := Enqueue(s, EnqueueInput{Tool: "call_nonexistent", Prompt: "hi", Cwd: "/tmp"})
	if err == nil {
		t.Fatalf("expected error for unknown tool")
	}
	if types.KindOf(err) != types.KindInvalidParams {
		t.Fatalf("expected KindInvalidParams, got %s", types.KindOf(err))
	}
}

func TestEnqueueAppliesDefaultTimeouts(t *testing.T) {
	s := newTestStore(t)
	job, err := Enqueue(s, EnqueueInput{Tool: "call_gem", Prompt: "hi", Cwd: "/tmp"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.WallTimeout != defaultWallTimeout || job.ActivityTimeout != defaultActivityTimeout {
		t.Fatalf("expected default timeouts, got wall=%s activity=%s", job.WallTimeout, job.ActivityTimeout)
	}
	if job.Status != types.JobQueued {
		t.Fatalf("expected queued status, got %s", job.Status)
	}
}

func TestCancelRegistryCallsRealCancelFunc(t *testing.T) {
	reg := NewCancelRegistry()
	ctx := reg.Register(context.Background(), "job-1")

	if reg.Cancel("job-1") != true {
		t.Fatalf("expected cancel to find registered job")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("expected context to be cancelled")
	}

	if reg.Cancel("job-1") != false {
		t.Fatalf("expected second cancel of same job to report not-found")
	}
}

func TestRecordSessionOnSuccessGatesOnErrorAndSessionID(t *testing.T) {
	s := newTestStore(t)

	if err := RecordSessionOnSuccess(s, "call_gem", "default", errors.New("boom"), "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ts, err := s.GetToolSession("call_gem", "default")
	if err != nil {
		t.Fatalf("get tool session: %v", err)
	}
	if ts != nil {
		t.Fatalf("expected no tool session recorded after a failed exchange")
	}

	if err := RecordSessionOnSuccess(s, "call_gem", "default", nil, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ts, err = s.GetToolSession("call_gem", "default")
	if err != nil {
		t.Fatalf("get tool session: %v", err)
	}
	if ts != nil {
		t.Fatalf("expected no tool session recorded when no session id was reported")
	}

	if err := RecordSessionOnSuccess(s, "call_gem", "default", nil, "sess-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ts, err = s.GetToolSession("call_gem", "default")
	if err != nil || ts == nil {
		t.Fatalf("expected tool session recorded on success with session id: %v", err)
	}
	if ts.LastSessionID != "sess-2" {
		t.Fatalf("expected sess-2, got %s", ts.LastSessionID)
	}
}

func TestWorkerPermitReleasedWhenQueueEmpty(t *testing.T) {
	s := newTestStore(t)
	w := NewWorker(s, nil, 2, 10*time.Millisecond)

	w.tryClaimOne(context.Background())
	if len(w.permits) != 0 {
		t.Fatalf("expected permit released on empty queue, got %d held", len(w.permits))
	}
}

func TestExtractSessionIDFromJSONLine(t *testing.T) {
	if got := extractSessionID(`{"session_id": "abc-123", "type": "status"}`); got != "abc-123" {
		t.Fatalf("expected abc-123, got %q", got)
	}
	if got := extractSessionID("plain text with no session info"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
