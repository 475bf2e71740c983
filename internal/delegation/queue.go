package delegation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

const (
	defaultWallTimeout     = 10 * time.Minute
	defaultActivityTimeout = 2 * time.Minute

	// observeDirective is prepended to the prompt when mode=observe, per
	// the read-only delegation contract.
	observeDirective = "You are in read-only observe mode. Report findings only; do not modify any file or external state.\n\n"
)

// EnqueueInput is the call_<tool> request payload.
type EnqueueInput struct {
	Tool              string
	AgentInstance     string
	Prompt            string
	Cwd               string
	ModelOverride     string
	WallTimeout       time.Duration
	ActivityTimeout   time.Duration
	Metadata          map[string]string
	Mode              types.DelegationMode
	SessionID         string
	ForceFreshSession bool
}

// Enqueue validates the tool name and queues a new job in status=queued.
// It never spawns a subprocess itself — that only happens once a worker
// acquires a permit and claims the job.
func Enqueue(st *store.Store, in EnqueueInput) (*types.AgentJob, error) {
	if _, err := Resolve(in.Tool); err != nil {
		return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
	}
	if in.AgentInstance == "" {
		in.AgentInstance = "default"
	}
	wall := in.WallTimeout
	if wall <= 0 {
		wall = defaultWallTimeout
	}
	activity := in.ActivityTimeout
	if activity <= 0 {
		activity = defaultActivityTimeout
	}
	mode := in.Mode
	if mode == "" {
		mode = types.DelegationNormal
	}
	if mode != types.DelegationNormal && mode != types.DelegationObserve {
		return nil, types.NewError(types.KindInvalidParams, fmt.Sprintf("invalid mode %q", mode), nil)
	}

	prompt := in.Prompt
	metadata := in.Metadata
	if mode == types.DelegationObserve {
		prompt = observeDirective + prompt
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["mode"] = string(mode)
	}

	job := &types.AgentJob{
		ID:                uuid.NewString(),
		Tool:              in.Tool,
		AgentInstance:     in.AgentInstance,
		Prompt:            prompt,
		Cwd:               in.Cwd,
		ModelOverride:     in.ModelOverride,
		WallTimeout:       wall,
		ActivityTimeout:   activity,
		Status:            types.JobQueued,
		Metadata:          metadata,
		RequestedSessionID: in.SessionID,
		ForceFreshSession: in.ForceFreshSession,
	}
	if err := st.InsertJob(job); err != nil {
		return nil, types.NewError(types.KindStoreError, "enqueue job", err)
	}
	return job, nil
}
