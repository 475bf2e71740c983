package store

import (
	"database/sql"
	"fmt"

	"github.com/orbitalmind/kernel/internal/types"
)

// InsertEntityCandidate stages a new entity candidate, collapsing duplicates
// on (name, type, status).
func (s *Store) InsertEntityCandidate(c *types.EntityCandidate) error {
	existing, err := s.FindEntityCandidateDuplicate(c.Name, c.Type)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil // duplicate against an existing pending/approved candidate; drop silently
	}
	_, err = s.db.Exec(`
		INSERT INTO entity_candidates (id, name, type, confidence, status, source_thought_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Type, c.Confidence, string(c.Status), nullString(c.SourceThoughtID),
	)
	if err != nil {
		return fmt.Errorf("insert entity candidate: %w", err)
	}
	return nil
}

// FindEntityCandidateDuplicate looks for an existing pending or approved
// candidate with the same (name, type).
func (s *Store) FindEntityCandidateDuplicate(name, entityType string) (*types.EntityCandidate, error) {
	row := s.db.QueryRow(`
		SELECT id, name, type, confidence, status, source_thought_id, created_at, accepted_at, promoted_entity_id
		FROM entity_candidates
		WHERE name = ? AND type = ? AND status IN ('pending','approved')
		LIMIT 1`, name, entityType)
	c, err := scanEntityCandidate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetEntityCandidate retrieves a candidate by id.
func (s *Store) GetEntityCandidate(id string) (*types.EntityCandidate, error) {
	row := s.db.QueryRow(`
		SELECT id, name, type, confidence, status, source_thought_id, created_at, accepted_at, promoted_entity_id
		FROM entity_candidates WHERE id = ?`, id)
	return scanEntityCandidate(row)
}

// ListEntityCandidates lists candidates by status, confidence-filtered,
// for the moderation queue (low-confidence candidates are retained but
// filtered from the approval UI).
func (s *Store) ListEntityCandidates(status types.CandidateStatus, minConfidence float64, limit int) ([]*types.EntityCandidate, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, name, type, confidence, status, source_thought_id, created_at, accepted_at, promoted_entity_id
		FROM entity_candidates
		WHERE status = ? AND confidence >= ?
		ORDER BY created_at DESC LIMIT ?`, string(status), minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("list entity candidates: %w", err)
	}
	defer rows.Close()

	var out []*types.EntityCandidate
	for rows.Next() {
		c, err := scanEntityCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetEntityCandidateStatus moves a candidate to approved/rejected, and on
// approval records the earliest accepted_at and the promoted entity id.
// Re-approving an already-approved candidate leaves accepted_at unchanged:
// accepted_at is always the earliest approval time.
func (s *Store) SetEntityCandidateStatus(id string, status types.CandidateStatus, promotedEntityID string) error {
	if status == types.CandidateApproved {
		_, err := s.db.Exec(`
			UPDATE entity_candidates
			SET status = 'approved',
			    accepted_at = COALESCE(accepted_at, CURRENT_TIMESTAMP),
			    promoted_entity_id = COALESCE(promoted_entity_id, ?)
			WHERE id = ?`, promotedEntityID, id)
		if err != nil {
			return fmt.Errorf("approve entity candidate: %w", err)
		}
		return nil
	}
	_, err := s.db.Exec(`UPDATE entity_candidates SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set entity candidate status: %w", err)
	}
	return nil
}

func scanEntityCandidate(row rowScanner) (*types.EntityCandidate, error) {
	var c types.EntityCandidate
	var status string
	var sourceThoughtID, promotedEntityID sql.NullString
	var acceptedAt sql.NullTime

	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Confidence, &status, &sourceThoughtID, &c.CreatedAt, &acceptedAt, &promotedEntityID)
	if err != nil {
		return nil, err
	}
	c.Status = types.CandidateStatus(status)
	c.SourceThoughtID = sourceThoughtID.String
	c.PromotedEntityID = promotedEntityID.String
	c.AcceptedAt = timePtr(acceptedAt)
	return &c, nil
}

// InsertEdgeCandidate stages a new edge candidate, collapsing duplicates on
// (source_name, target_name, relation, status).
func (s *Store) InsertEdgeCandidate(c *types.EdgeCandidate) error {
	existing, err := s.FindEdgeCandidateDuplicate(c.SourceName, c.TargetName, c.Relation)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = s.db.Exec(`
		INSERT INTO edge_candidates (id, source_name, target_name, relation, confidence, status, source_thought_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SourceName, c.TargetName, c.Relation, c.Confidence, string(c.Status), nullString(c.SourceThoughtID),
	)
	if err != nil {
		return fmt.Errorf("insert edge candidate: %w", err)
	}
	return nil
}

// FindEdgeCandidateDuplicate looks for an existing pending or approved
// candidate with the same (source_name, target_name, relation).
func (s *Store) FindEdgeCandidateDuplicate(sourceName, targetName, relation string) (*types.EdgeCandidate, error) {
	row := s.db.QueryRow(`
		SELECT id, source_name, target_name, relation, confidence, status, source_thought_id, created_at, accepted_at, promoted_edge_id
		FROM edge_candidates
		WHERE source_name = ? AND target_name = ? AND relation = ? AND status IN ('pending','approved')
		LIMIT 1`, sourceName, targetName, relation)
	c, err := scanEdgeCandidate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetEdgeCandidate retrieves an edge candidate by id.
func (s *Store) GetEdgeCandidate(id string) (*types.EdgeCandidate, error) {
	row := s.db.QueryRow(`
		SELECT id, source_name, target_name, relation, confidence, status, source_thought_id, created_at, accepted_at, promoted_edge_id
		FROM edge_candidates WHERE id = ?`, id)
	return scanEdgeCandidate(row)
}

// ListEdgeCandidates lists edge candidates by status and confidence floor.
func (s *Store) ListEdgeCandidates(status types.CandidateStatus, minConfidence float64, limit int) ([]*types.EdgeCandidate, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, source_name, target_name, relation, confidence, status, source_thought_id, created_at, accepted_at, promoted_edge_id
		FROM edge_candidates
		WHERE status = ? AND confidence >= ?
		ORDER BY created_at DESC LIMIT ?`, string(status), minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("list edge candidates: %w", err)
	}
	defer rows.Close()

	var out []*types.EdgeCandidate
	for rows.Next() {
		c, err := scanEdgeCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetEdgeCandidateStatus moves an edge candidate to approved/rejected.
func (s *Store) SetEdgeCandidateStatus(id string, status types.CandidateStatus, promotedEdgeID string) error {
	if status == types.CandidateApproved {
		_, err := s.db.Exec(`
			UPDATE edge_candidates
			SET status = 'approved',
			    accepted_at = COALESCE(accepted_at, CURRENT_TIMESTAMP),
			    promoted_edge_id = COALESCE(promoted_edge_id, ?)
			WHERE id = ?`, promotedEdgeID, id)
		if err != nil {
			return fmt.Errorf("approve edge candidate: %w", err)
		}
		return nil
	}
	_, err := s.db.Exec(`UPDATE edge_candidates SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set edge candidate status: %w", err)
	}
	return nil
}

func scanEdgeCandidate(row rowScanner) (*types.EdgeCandidate, error) {
	var c types.EdgeCandidate
	var status string
	var sourceThoughtID, promotedEdgeID sql.NullString
	var acceptedAt sql.NullTime

	err := row.Scan(&c.ID, &c.SourceName, &c.TargetName, &c.Relation, &c.Confidence, &status,
		&sourceThoughtID, &c.CreatedAt, &acceptedAt, &promotedEdgeID)
	if err != nil {
		return nil, err
	}
	c.Status = types.CandidateStatus(status)
	c.SourceThoughtID = sourceThoughtID.String
	c.PromotedEdgeID = promotedEdgeID.String
	c.AcceptedAt = timePtr(acceptedAt)
	return &c, nil
}

// CountStaleCandidates reports how many pending entity/edge candidates
// AgeOutCandidates would reject for the same threshold, without rejecting
// any of them — the dry_run path for the candidate sweep.
func (s *Store) CountStaleCandidates(olderThanDays int) (int64, error) {
	threshold := fmt.Sprintf("-%d days", olderThanDays)
	var n1, n2 int64
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM entity_candidates
		WHERE status = 'pending' AND created_at < datetime('now', ?)`, threshold).Scan(&n1); err != nil {
		return 0, fmt.Errorf("count stale entity candidates: %w", err)
	}
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM edge_candidates
		WHERE status = 'pending' AND created_at < datetime('now', ?)`, threshold).Scan(&n2); err != nil {
		return 0, fmt.Errorf("count stale edge candidates: %w", err)
	}
	return n1 + n2, nil
}

// AgeOutCandidates rejects stale pending candidates older than the given
// threshold, for maintenance candidate sweeps.
func (s *Store) AgeOutCandidates(olderThanDays int) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE entity_candidates SET status = 'rejected'
		WHERE status = 'pending' AND created_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", olderThanDays))
	if err != nil {
		return 0, fmt.Errorf("age out entity candidates: %w", err)
	}
	n, _ := res.RowsAffected()

	res2, err := s.db.Exec(`
		UPDATE edge_candidates SET status = 'rejected'
		WHERE status = 'pending' AND created_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", olderThanDays))
	if err != nil {
		return n, fmt.Errorf("age out edge candidates: %w", err)
	}
	n2, _ := res2.RowsAffected()
	return n + n2, nil
}
