package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmind/kernel/internal/delegation"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// CallParams is the shared request shape for every call_<tool> method.
type CallParams struct {
	AgentInstance      string            `json:"agent_instance"`
	Prompt             string            `json:"prompt" validate:"required"`
	Cwd                string            `json:"cwd" validate:"required"`
	ModelOverride      string            `json:"model_override"`
	WallTimeoutSec     int               `json:"wall_timeout_sec"`
	ActivityTimeoutSec int               `json:"activity_timeout_sec"`
	Metadata           map[string]string `json:"metadata"`
	Mode               string            `json:"mode" validate:"omitempty,oneof=normal observe"`
	SessionID          string            `json:"session_id"`
	ForceFreshSession  bool              `json:"force_fresh_session"`
}

// JobsParams is the call_jobs request shape.
type JobsParams struct {
	Status string `json:"status"`
	Tool   string `json:"tool"`
	Limit  int    `json:"limit"`
}

// CancelParams is the call_cancel request shape.
type CancelParams struct {
	JobID string `json:"job_id" validate:"required"`
}

// StatusParams is the call_status request shape.
type StatusParams struct {
	JobID string `json:"job_id" validate:"required"`
}

// RegisterDelegation wires call_gem/call_codex/call_cc/call_vibe/call_warp
// (one method per tool contract, each just enqueuing with that tool name
// baked in), plus call_status, call_jobs, and call_cancel.
func RegisterDelegation(d *Dispatcher, st *store.Store, worker *delegation.Worker) {
	for toolName := range delegation.Contracts {
		tool := toolName
		d.Register(tool, func(ctx context.Context, raw interface{}) (interface{}, error) {
			p, err := decodeParams[CallParams](raw)
			if err != nil {
				return nil, types.NewError(types.KindInvalidParams, "decode call params", err)
			}
			if err := ValidateParams(p); err != nil {
				return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
			}
			return delegation.Enqueue(st, delegation.EnqueueInput{
				Tool:              tool,
				AgentInstance:     p.AgentInstance,
				Prompt:            p.Prompt,
				Cwd:               p.Cwd,
				ModelOverride:     p.ModelOverride,
				WallTimeout:       secondsToDuration(p.WallTimeoutSec),
				ActivityTimeout:   secondsToDuration(p.ActivityTimeoutSec),
				Metadata:          p.Metadata,
				Mode:              types.DelegationMode(p.Mode),
				SessionID:         p.SessionID,
				ForceFreshSession: p.ForceFreshSession,
			})
		})
	}

	d.Register("call_status", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[StatusParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode status params", err)
		}
		if err := ValidateParams(p); err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}
		job, err := st.GetJob(p.JobID)
		if err != nil {
			return nil, types.NewError(types.KindStoreError, "load job", err)
		}
		if job == nil {
			return nil, types.NewError(types.KindInvalidParams, fmt.Sprintf("job %s not found", p.JobID), nil)
		}
		return job, nil
	})

	d.Register("call_jobs", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[JobsParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode jobs params", err)
		}
		return st.ListJobs(store.JobFilter{Status: types.JobStatus(p.Status), Tool: p.Tool, Limit: p.Limit})
	})

	d.Register("call_cancel", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[CancelParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode cancel params", err)
		}
		if err := ValidateParams(p); err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}
		cancelled := worker.Cancel(p.JobID)
		return map[string]bool{"cancelled": cancelled}, nil
	})
}

func secondsToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
