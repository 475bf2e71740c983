package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/orbitalmind/kernel/internal/types"
)

// encodeEmbedding packs a float32 vector into a little-endian byte blob.
func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		bits := math.Float32bits(f)
		buf[i*4+0] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}

// decodeEmbedding is the inverse of encodeEmbedding.
func decodeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		bits := uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		v[i] = math.Float32frombits(bits)
	}
	return v
}

// InsertThought writes a new thought row. Called before embedding is
// requested (save-first ingestion).
func (s *Store) InsertThought(t *types.Thought) error {
	_, err := s.db.Exec(`
		INSERT INTO thoughts
		(id, content, status, significance, access_count, last_accessed,
		 embedding, embedding_model, embedding_dim, embedding_status, session_id, continuity_of)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Content, string(t.Status), t.Significance, t.AccessCount, t.LastAccessed,
		encodeEmbedding(t.Embedding), nullString(t.EmbeddingModel), t.EmbeddingDim, string(t.EmbeddingStatus),
		nullString(t.SessionID), nullString(t.ContinuityOf),
	)
	if err != nil {
		return fmt.Errorf("insert thought: %w", err)
	}
	return nil
}

// CompleteThoughtEmbedding records a successful embedding for a thought.
func (s *Store) CompleteThoughtEmbedding(id string, embedding []float32, model string, dim int) error {
	_, err := s.db.Exec(`
		UPDATE thoughts
		SET embedding = ?, embedding_model = ?, embedding_dim = ?, embedding_status = 'complete'
		WHERE id = ?`,
		encodeEmbedding(embedding), model, dim, id,
	)
	if err != nil {
		return fmt.Errorf("complete thought embedding: %w", err)
	}
	return nil
}

// FailThoughtEmbedding marks a thought's embedding as failed; the row
// remains otherwise intact for a later embed_pending retry.
func (s *Store) FailThoughtEmbedding(id string) error {
	_, err := s.db.Exec(`UPDATE thoughts SET embedding_status = 'failed' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("fail thought embedding: %w", err)
	}
	return nil
}

// GetThought retrieves a single thought by id.
func (s *Store) GetThought(id string) (*types.Thought, error) {
	row := s.db.QueryRow(`
		SELECT id, content, created_at, status, significance, access_count, last_accessed,
		       embedding, embedding_model, embedding_dim, embedding_status, session_id, continuity_of
		FROM thoughts WHERE id = ?`, id)
	return scanThought(row)
}

// LatestThoughtForSession returns the most recent thought recorded for a
// session id, used to populate continuity pointers.
func (s *Store) LatestThoughtForSession(sessionID string) (*types.Thought, error) {
	row := s.db.QueryRow(`
		SELECT id, content, created_at, status, significance, access_count, last_accessed,
		       embedding, embedding_model, embedding_dim, embedding_status, session_id, continuity_of
		FROM thoughts WHERE session_id = ? ORDER BY created_at DESC LIMIT 1`, sessionID)
	t, err := scanThought(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanThought(row rowScanner) (*types.Thought, error) {
	var t types.Thought
	var status, embStatus string
	var embModel, sessionID, continuityOf sql.NullString
	var lastAccessed sql.NullTime
	var embBlob []byte

	err := row.Scan(&t.ID, &t.Content, &t.CreatedAt, &status, &t.Significance, &t.AccessCount, &lastAccessed,
		&embBlob, &embModel, &t.EmbeddingDim, &embStatus, &sessionID, &continuityOf)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan thought: %w", err)
	}

	t.Status = types.ThoughtStatus(status)
	t.EmbeddingModel = embModel.String
	t.EmbeddingStatus = types.EmbeddingStatus(embStatus)
	t.Embedding = decodeEmbedding(embBlob)
	t.SessionID = sessionID.String
	t.ContinuityOf = continuityOf.String
	if lastAccessed.Valid {
		t.LastAccessed = lastAccessed.Time
	}
	return &t, nil
}

// ThoughtFilter selects thoughts for maintenance sweeps.
type ThoughtFilter struct {
	EmbeddingStatuses []types.EmbeddingStatus
	ModelMismatch     string // exclude thoughts whose embedding_model equals this value
	DimMismatch       int    // exclude thoughts whose embedding_dim equals this value
	Limit             int
}

// ThoughtsNeedingEmbedding returns thoughts whose embedding_status is pending
// or failed, for `maintain embed_pending`.
func (s *Store) ThoughtsNeedingEmbedding(limit int) ([]*types.Thought, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, content, created_at, status, significance, access_count, last_accessed,
		       embedding, embedding_model, embedding_dim, embedding_status, session_id, continuity_of
		FROM thoughts
		WHERE embedding_status IN ('pending', 'failed')
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query thoughts needing embedding: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// AllThoughtsWithDimension returns every active thought whose embedding
// dimension and model match, the candidate pool for search()'s thought
// vector scan.
func (s *Store) AllThoughtsWithDimension(model string, dim int) ([]*types.Thought, error) {
	rows, err := s.db.Query(`
		SELECT id, content, created_at, status, significance, access_count, last_accessed,
		       embedding, embedding_model, embedding_dim, embedding_status, session_id, continuity_of
		FROM thoughts
		WHERE embedding_status = 'complete' AND embedding_dim = ? AND embedding_model = ? AND status != 'removal'`,
		dim, model)
	if err != nil {
		return nil, fmt.Errorf("query thoughts by dimension: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// ThoughtsMismatchedEmbedding returns thoughts whose (model, dim) do not
// match the currently configured model/dim, for `maintain reembed`.
func (s *Store) ThoughtsMismatchedEmbedding(model string, dim int) ([]*types.Thought, error) {
	rows, err := s.db.Query(`
		SELECT id, content, created_at, status, significance, access_count, last_accessed,
		       embedding, embedding_model, embedding_dim, embedding_status, session_id, continuity_of
		FROM thoughts
		WHERE embedding_status = 'complete' AND (embedding_model != ? OR embedding_dim != ?)
		ORDER BY created_at ASC`, model, dim)
	if err != nil {
		return nil, fmt.Errorf("query mismatched thoughts: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// CountThoughtsMismatched reports how many thoughts have a stale model/dim,
// for `health_check_embeddings`.
func (s *Store) CountThoughtsMismatched(model string, dim int) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM thoughts
		WHERE embedding_status = 'complete' AND (embedding_model != ? OR embedding_dim != ?)`,
		model, dim).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count mismatched thoughts: %w", err)
	}
	return n, nil
}

// CountThoughtsPendingEmbedding reports how many thoughts are pending or
// failed, for `health_check_embeddings`.
func (s *Store) CountThoughtsPendingEmbedding() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM thoughts WHERE embedding_status IN ('pending','failed')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending thoughts: %w", err)
	}
	return n, nil
}

func scanThoughts(rows *sql.Rows) ([]*types.Thought, error) {
	var out []*types.Thought
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TouchThoughtAccess bumps access_count and last_accessed for thoughts
// returned by retrieval, in a single batched write after the response is
// assembled (not on the critical path).
func (s *Store) TouchThoughtAccess(ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE thoughts SET access_count = access_count + 1, last_accessed = ? WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.Exec(at, id); err != nil {
				return fmt.Errorf("touch thought %s: %w", id, err)
			}
		}
		return nil
	})
}

// InsertCorrection records a rethink() flag against a prior thought.
func (s *Store) InsertCorrection(c *types.ThoughtCorrection) error {
	_, err := s.db.Exec(`INSERT INTO thought_corrections (id, thought_id, reason) VALUES (?, ?, ?)`,
		c.ID, c.ThoughtID, c.Reason)
	if err != nil {
		return fmt.Errorf("insert correction: %w", err)
	}
	return nil
}

// ListCorrections enumerates correction events, most recent first.
func (s *Store) ListCorrections(limit int) ([]*types.ThoughtCorrection, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, thought_id, reason, created_at FROM thought_corrections ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()

	var out []*types.ThoughtCorrection
	for rows.Next() {
		var c types.ThoughtCorrection
		if err := rows.Scan(&c.ID, &c.ThoughtID, &c.Reason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// EnsureContinuityFields backfills session_id to empty string (rather than
// NULL) on older rows, for `maintain ensure_continuity_fields`;
// continuity_of is left as it is.
func (s *Store) EnsureContinuityFields() (int64, error) {
	res, err := s.db.Exec(`UPDATE thoughts SET session_id = '' WHERE session_id IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("ensure continuity fields: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SetThoughtStatus changes a thought's lifecycle status (archival, removal).
func (s *Store) SetThoughtStatus(id string, status types.ThoughtStatus) error {
	_, err := s.db.Exec(`UPDATE thoughts SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set thought status: %w", err)
	}
	return nil
}
