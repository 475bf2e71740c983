package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/orbitalmind/kernel/internal/types"
)

// InsertJob enqueues a new delegation job with status=queued.
func (s *Store) InsertJob(j *types.AgentJob) error {
	meta, err := json.Marshal(j.Metadata)
	if err != nil {
		return fmt.Errorf("marshal job metadata: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO agent_jobs
		(id, tool, agent_instance, prompt, cwd, model_override, wall_timeout_ms, activity_timeout_ms, status, metadata,
		 requested_session_id, force_fresh_session)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'queued', ?, ?, ?)`,
		j.ID, j.Tool, j.AgentInstance, j.Prompt, j.Cwd, nullString(j.ModelOverride),
		j.WallTimeout.Milliseconds(), j.ActivityTimeout.Milliseconds(), string(meta),
		nullString(j.RequestedSessionID), j.ForceFreshSession,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// ClaimNextQueuedJob atomically transitions the oldest queued job to
// running, setting started_at. Returns nil, nil if no job is queued. This is
// the single-row conditional update to harden into a true compare-and-swap
// if the single-writer assumption is ever dropped.
func (s *Store) ClaimNextQueuedJob() (*types.AgentJob, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM agent_jobs WHERE status = 'queued' ORDER BY created_at ASC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find queued job: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE agent_jobs SET status = 'running', claimed_at = CURRENT_TIMESTAMP, started_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'queued'`, id)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, nil // raced with another claimer; caller retries next tick
	}
	return s.GetJob(id)
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(id string) (*types.AgentJob, error) {
	row := s.db.QueryRow(jobSelect+` WHERE id = ?`, id)
	return scanJob(row)
}

// CompleteJob marks a job completed, persisting the result, duration, and
// any reported session id. completed_at is always set for a completed job.
func (s *Store) CompleteJob(id, result, sessionID string, duration time.Duration, streamEvents []string) error {
	events := strings.Join(streamEvents, "\n")
	_, err := s.db.Exec(`
		UPDATE agent_jobs
		SET status = 'completed', completed_at = CURRENT_TIMESTAMP, duration_ms = ?, result = ?, session_id = ?, stream_events = ?
		WHERE id = ?`, duration.Milliseconds(), result, nullString(sessionID), nullString(events), id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob marks a job failed (including timeouts) with a stable error kind.
func (s *Store) FailJob(id, errMsg, errKind string, duration time.Duration) error {
	_, err := s.db.Exec(`
		UPDATE agent_jobs
		SET status = 'failed', completed_at = CURRENT_TIMESTAMP, duration_ms = ?, error = ?, error_kind = ?
		WHERE id = ?`, duration.Milliseconds(), errMsg, errKind, id)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// CancelJob marks a job cancelled. completed_at is deliberately left unset;
// duration is still recorded so callers can report how long the job ran
// before cancellation.
func (s *Store) CancelJob(id string, duration time.Duration) error {
	_, err := s.db.Exec(`UPDATE agent_jobs SET status = 'cancelled', duration_ms = ? WHERE id = ?`, duration.Milliseconds(), id)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return nil
}

const jobSelect = `
	SELECT id, tool, agent_instance, prompt, cwd, model_override, wall_timeout_ms, activity_timeout_ms,
	       status, claimed_at, started_at, completed_at, duration_ms, error, error_kind, result, stream_events,
	       session_id, exchange_id, metadata, requested_session_id, force_fresh_session, created_at
	FROM agent_jobs`

func scanJob(row rowScanner) (*types.AgentJob, error) {
	var j types.AgentJob
	var status string
	var modelOverride, errMsg, errKind, result, streamEvents, sessionID, exchangeID, metadata, requestedSessionID sql.NullString
	var claimedAt, startedAt, completedAt sql.NullTime
	var wallMs, activityMs, durationMs int64
	var forceFresh bool

	err := row.Scan(&j.ID, &j.Tool, &j.AgentInstance, &j.Prompt, &j.Cwd, &modelOverride, &wallMs, &activityMs,
		&status, &claimedAt, &startedAt, &completedAt, &durationMs, &errMsg, &errKind, &result, &streamEvents,
		&sessionID, &exchangeID, &metadata, &requestedSessionID, &forceFresh, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	j.RequestedSessionID = requestedSessionID.String
	j.ForceFreshSession = forceFresh

	j.ModelOverride = modelOverride.String
	j.WallTimeout = time.Duration(wallMs) * time.Millisecond
	j.ActivityTimeout = time.Duration(activityMs) * time.Millisecond
	j.Status = types.JobStatus(status)
	j.ClaimedAt = timePtr(claimedAt)
	j.StartedAt = timePtr(startedAt)
	j.CompletedAt = timePtr(completedAt)
	j.Duration = time.Duration(durationMs) * time.Millisecond
	j.Error = errMsg.String
	j.ErrorKind = errKind.String
	j.Result = result.String
	if streamEvents.String != "" {
		j.StreamEvents = strings.Split(streamEvents.String, "\n")
	}
	j.SessionID = sessionID.String
	j.ExchangeID = exchangeID.String
	if metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &j.Metadata)
	}
	return &j, nil
}

// JobFilter selects jobs for call_jobs.
type JobFilter struct {
	Status types.JobStatus
	Tool   string
	Limit  int
}

// ListJobs lists jobs matching filter, most recent first.
func (s *Store) ListJobs(f JobFilter) ([]*types.AgentJob, error) {
	query := jobSelect + ` WHERE 1=1`
	var args []interface{}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Tool != "" {
		query += ` AND tool = ?`
		args = append(args, f.Tool)
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*types.AgentJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// InsertExchange appends an exchange row for one subprocess invocation.
func (s *Store) InsertExchange(e *types.AgentExchange) error {
	_, err := s.db.Exec(`
		INSERT INTO agent_exchanges (id, job_id, prompt, response, stderr_tail, session_id, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.JobID, e.Prompt, e.Response, e.StderrTail, nullString(e.SessionID), e.StartedAt, e.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// GetToolSession returns the resume pointer for (tool, agentInstance), or
// nil if none has been recorded yet.
func (s *Store) GetToolSession(tool, agentInstance string) (*types.ToolSession, error) {
	row := s.db.QueryRow(`
		SELECT tool, agent_instance, last_session_id, updated_at
		FROM tool_sessions WHERE tool = ? AND agent_instance = ?`, tool, agentInstance)
	var ts types.ToolSession
	err := row.Scan(&ts.Tool, &ts.AgentInstance, &ts.LastSessionID, &ts.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tool session: %w", err)
	}
	return &ts, nil
}

// SetToolSession upserts the resume pointer. This must only be called after
// a successful exchange completion with a reported session id — callers,
// not this method, are responsible for that gating.
func (s *Store) SetToolSession(tool, agentInstance, sessionID string) error {
	_, err := s.db.Exec(`
		INSERT INTO tool_sessions (tool, agent_instance, last_session_id, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(tool, agent_instance) DO UPDATE SET
			last_session_id = excluded.last_session_id,
			updated_at = CURRENT_TIMESTAMP`,
		tool, agentInstance, sessionID)
	if err != nil {
		return fmt.Errorf("set tool session: %w", err)
	}
	return nil
}
