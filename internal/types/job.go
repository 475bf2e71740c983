package types

import "time"

// JobStatus is the delegation job state machine.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// DelegationMode toggles the read-only "observe" directive.
type DelegationMode string

const (
	DelegationNormal  DelegationMode = "normal"
	DelegationObserve DelegationMode = "observe"
)

// AgentJob is a durable delegation record: one request to run an external
// CLI agent and persist its result.
type AgentJob struct {
	ID             string            `json:"id"`
	Tool           string            `json:"tool"`
	AgentInstance  string            `json:"agent_instance"`
	Prompt         string            `json:"prompt"`
	Cwd            string            `json:"cwd"`
	ModelOverride  string            `json:"model_override,omitempty"`
	WallTimeout    time.Duration     `json:"wall_timeout"`
	ActivityTimeout time.Duration    `json:"activity_timeout"`
	RequestedSessionID string        `json:"requested_session_id,omitempty"`
	ForceFreshSession bool           `json:"force_fresh_session,omitempty"`
	Status         JobStatus         `json:"status"`
	ClaimedAt      *time.Time        `json:"claimed_at,omitempty"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Duration       time.Duration     `json:"duration,omitempty"`
	Error          string            `json:"error,omitempty"`
	ErrorKind      string            `json:"error_kind,omitempty"`
	Result         string            `json:"result,omitempty"`
	StreamEvents   []string          `json:"stream_events,omitempty"`
	SessionID      string            `json:"session_id,omitempty"`
	ExchangeID     string            `json:"exchange_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// AgentExchange is an append-only record of one subprocess invocation.
type AgentExchange struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"`
	StderrTail string    `json:"stderr_tail,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// ToolSession is the resume pointer for a (tool, agent instance) pair.
type ToolSession struct {
	Tool          string    `json:"tool"`
	AgentInstance string    `json:"agent_instance"`
	LastSessionID string    `json:"last_session_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}
