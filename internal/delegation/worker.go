package delegation

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/orbitalmind/kernel/internal/bus"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// Worker polls the job queue and runs delegated CLI agent invocations
// under a bounded concurrency permit. The critical ordering invariant is
// that a permit is acquired BEFORE a job transitions to running: the
// semaphore is acquired first, and only a successful ClaimNextQueuedJob
// (which performs that transition) keeps it held. This generalizes and
// fixes the unbounded spawn loop pattern, which spawned agents
// unconditionally with only a fixed sleep between spawns and no admission
// control at all.
type Worker struct {
	Store    *store.Store
	Bus      *bus.Bus
	Cancels  *CancelRegistry
	permits  chan struct{}
	pollEvery time.Duration
}

// NewWorker builds a worker allowing up to maxConcurrent jobs to run at
// once, polling the queue every pollEvery when idle.
func NewWorker(st *store.Store, b *bus.Bus, maxConcurrent int, pollEvery time.Duration) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if pollEvery <= 0 {
		pollEvery = 500 * time.Millisecond
	}
	return &Worker{
		Store:     st,
		Bus:       b,
		Cancels:   NewCancelRegistry(),
		permits:   make(chan struct{}, maxConcurrent),
		pollEvery: pollEvery,
	}
}

// Run polls for queued jobs until ctx is cancelled. Each accepted job runs
// in its own goroutine so a long-running agent never blocks the queue from
// draining other jobs within the concurrency limit.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tryClaimOne(ctx)
		}
	}
}

// tryClaimOne acquires a permit first, then claims a job. If the queue is
// empty the permit is released immediately, never left held against no
// work — that would silently shrink capacity for later ticks.
func (w *Worker) tryClaimOne(ctx context.Context) {
	select {
	case w.permits <- struct{}{}:
	default:
		return // at capacity; try again next tick
	}

	job, err := w.Store.ClaimNextQueuedJob()
	if err != nil {
		log.Printf("[DELEGATION] claim failed: %v", err)
		<-w.permits
		return
	}
	if job == nil {
		<-w.permits
		return
	}

	go func() {
		defer func() { <-w.permits }()
		w.execute(ctx, job)
	}()
}

func (w *Worker) execute(ctx context.Context, job *types.AgentJob) {
	jobCtx := w.Cancels.Register(ctx, job.ID)
	defer w.Cancels.Unregister(job.ID)

	if w.Bus != nil {
		w.Bus.PublishJobStatus(bus.JobEvent{JobID: job.ID, Tool: job.Tool, Status: "running", Timestamp: time.Now()})
	}

	contract, err := Resolve(job.Tool)
	if err != nil {
		w.fail(job, err, string(types.KindInvalidParams), 0)
		return
	}

	var resumeID string
	switch {
	case job.ForceFreshSession:
		// caller forced a fresh session; never resume, even if a pointer exists.
	case job.RequestedSessionID != "":
		resumeID = job.RequestedSessionID
	default:
		sid, err := ResumeSessionID(w.Store, job.Tool, job.AgentInstance)
		if err != nil {
			log.Printf("[DELEGATION] failed to load resume pointer for %s/%s: %v", job.Tool, job.AgentInstance, err)
		}
		resumeID = sid
	}

	started := time.Now()
	result, execErr := RunExchange(jobCtx, job.Cwd, contract, job.Prompt, resumeID, job.ModelOverride, job.WallTimeout, job.ActivityTimeout)
	duration := time.Since(started)

	exchange := &types.AgentExchange{ID: uuid.NewString(), JobID: job.ID, Prompt: job.Prompt, StartedAt: started, EndedAt: time.Now()}
	if result != nil {
		exchange.Response = result.Response
		exchange.StderrTail = result.StderrTail
		exchange.SessionID = result.SessionID
	}
	if err := w.Store.InsertExchange(exchange); err != nil {
		log.Printf("[DELEGATION] failed to record exchange for job %s: %v", job.ID, err)
	}

	if execErr != nil {
		if jobCtx.Err() == context.Canceled {
			w.cancel(job, duration)
			return
		}
		kind := string(types.KindSubprocessError)
		if classified := types.KindOf(execErr); classified != "" && classified != types.KindInternal {
			kind = string(classified)
		}
		if jobCtx.Err() == context.DeadlineExceeded {
			kind = string(types.KindTimeout)
		}
		w.fail(job, execErr, kind, duration)
		return
	}

	sessionID := ""
	if result != nil {
		sessionID = result.SessionID
	}
	if err := RecordSessionOnSuccess(w.Store, job.Tool, job.AgentInstance, nil, sessionID); err != nil {
		log.Printf("[DELEGATION] failed to record resume pointer for job %s: %v", job.ID, err)
	}

	var response string
	var events []string
	if result != nil {
		response = result.Response
		events = result.StreamEvents
	}
	if err := w.Store.CompleteJob(job.ID, response, sessionID, duration, events); err != nil {
		log.Printf("[DELEGATION] failed to complete job %s: %v", job.ID, err)
		return
	}
	if w.Bus != nil {
		w.Bus.PublishJobStatus(bus.JobEvent{JobID: job.ID, Tool: job.Tool, Status: "completed", Timestamp: time.Now()})
	}
}

func (w *Worker) fail(job *types.AgentJob, err error, kind string, duration time.Duration) {
	log.Printf("[DELEGATION] job %s failed: %v", job.ID, err)
	if ferr := w.Store.FailJob(job.ID, err.Error(), kind, duration); ferr != nil {
		log.Printf("[DELEGATION] failed to record failure for job %s: %v", job.ID, ferr)
	}
	if w.Bus != nil {
		w.Bus.PublishJobStatus(bus.JobEvent{JobID: job.ID, Tool: job.Tool, Status: "failed", Error: err.Error(), Timestamp: time.Now()})
	}
}

func (w *Worker) cancel(job *types.AgentJob, duration time.Duration) {
	log.Printf("[DELEGATION] job %s cancelled", job.ID)
	if err := w.Store.CancelJob(job.ID, duration); err != nil {
		log.Printf("[DELEGATION] failed to record cancellation for job %s: %v", job.ID, err)
	}
	if w.Bus != nil {
		w.Bus.PublishJobStatus(bus.JobEvent{JobID: job.ID, Tool: job.Tool, Status: "cancelled", Timestamp: time.Now()})
	}
}

// Cancel requests cancellation of a running job via its registered real
// context.CancelFunc. Returns false if the job is not currently running
// under this worker (already finished, or never started).
func (w *Worker) Cancel(jobID string) bool {
	return w.Cancels.Cancel(jobID)
}
