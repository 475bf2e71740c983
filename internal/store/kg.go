package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orbitalmind/kernel/internal/types"
)

// InsertEntity writes a new KG entity row. Entities are created only by
// promotion, so this is called exclusively from the
// promotion path.
func (s *Store) InsertEntity(e *types.KGEntity) error {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("marshal entity properties: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO kg_entities
		(id, name, type, properties, embedding, embedding_model, embedding_dim, mass, orbit, velocity, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Type, string(props), encodeEmbedding(e.Embedding), nullString(e.EmbeddingModel),
		e.EmbeddingDim, e.Mass, e.Orbit, e.Velocity, e.LastAccessed,
	)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

// GetEntity retrieves an entity by id.
func (s *Store) GetEntity(id string) (*types.KGEntity, error) {
	row := s.db.QueryRow(entitySelect+` WHERE id = ?`, id)
	return scanEntity(row)
}

// FindEntityByNameType looks up an existing entity for duplicate detection
// and promotion idempotence, keyed on (name, type).
func (s *Store) FindEntityByNameType(name, entityType string) (*types.KGEntity, error) {
	row := s.db.QueryRow(entitySelect+` WHERE name = ? AND type = ?`, name, entityType)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// AllEntitiesWithDimension returns every entity whose embedding dimension
// matches dim, the candidate pool for vector search stage 1.
func (s *Store) AllEntitiesWithDimension(model string, dim int) ([]*types.KGEntity, error) {
	rows, err := s.db.Query(entitySelect+` WHERE embedding_dim = ? AND embedding_model = ?`, dim, model)
	if err != nil {
		return nil, fmt.Errorf("query entities by dimension: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// AllEntitiesMismatched returns entities whose (model, dim) is stale, for
// `maintain reembed_kg`.
func (s *Store) AllEntitiesMismatched(model string, dim int) ([]*types.KGEntity, error) {
	rows, err := s.db.Query(entitySelect+` WHERE embedding_model != ? OR embedding_dim != ?`, model, dim)
	if err != nil {
		return nil, fmt.Errorf("query mismatched entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// CountEntitiesMismatched reports the stale-embedding entity count.
func (s *Store) CountEntitiesMismatched(model string, dim int) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM kg_entities WHERE embedding_model != ? OR embedding_dim != ?`, model, dim).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count mismatched entities: %w", err)
	}
	return n, nil
}

// UpdateEntityEmbedding writes a freshly re-embedded vector.
func (s *Store) UpdateEntityEmbedding(id string, embedding []float32, model string, dim int) error {
	_, err := s.db.Exec(`UPDATE kg_entities SET embedding = ?, embedding_model = ?, embedding_dim = ? WHERE id = ?`,
		encodeEmbedding(embedding), model, dim, id)
	if err != nil {
		return fmt.Errorf("update entity embedding: %w", err)
	}
	return nil
}

const entitySelect = `
	SELECT id, name, type, properties, created_at, embedding, embedding_model, embedding_dim,
	       mass, orbit, velocity, last_accessed
	FROM kg_entities`

func scanEntity(row rowScanner) (*types.KGEntity, error) {
	var e types.KGEntity
	var props string
	var embModel sql.NullString
	var embBlob []byte
	var lastAccessed sql.NullTime

	err := row.Scan(&e.ID, &e.Name, &e.Type, &props, &e.CreatedAt, &embBlob, &embModel, &e.EmbeddingDim,
		&e.Mass, &e.Orbit, &e.Velocity, &lastAccessed)
	if err != nil {
		return nil, err
	}
	e.EmbeddingModel = embModel.String
	e.Embedding = decodeEmbedding(embBlob)
	if lastAccessed.Valid {
		e.LastAccessed = lastAccessed.Time
	}
	if props != "" {
		_ = json.Unmarshal([]byte(props), &e.Properties)
	}
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*types.KGEntity, error) {
	var out []*types.KGEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TouchEntityAccess bumps velocity (access frequency) and last_accessed for
// entities returned from retrieval, batched after the response is built.
func (s *Store) TouchEntityAccess(ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE kg_entities SET velocity = velocity + 1, last_accessed = ? WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.Exec(at, id); err != nil {
				return fmt.Errorf("touch entity %s: %w", id, err)
			}
		}
		return nil
	})
}

// InsertEdge writes a new KG edge. Both endpoints must already exist;
// callers are expected to have checked this before calling InsertEdge since
// SQLite FK enforcement alone would not give the caller a typed error to
// react to.
func (s *Store) InsertEdge(edge *types.KGEdge) error {
	if _, err := s.GetEntity(edge.SourceID); err != nil {
		return fmt.Errorf("edge source %s does not exist: %w", edge.SourceID, err)
	}
	if _, err := s.GetEntity(edge.TargetID); err != nil {
		return fmt.Errorf("edge target %s does not exist: %w", edge.TargetID, err)
	}
	_, err := s.db.Exec(`INSERT INTO kg_relationships (id, source_id, target_id, rel_type, weight) VALUES (?, ?, ?, ?, ?)`,
		edge.ID, edge.SourceID, edge.TargetID, edge.Relation, edge.Weight)
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

// FindEdge looks up an existing edge for promotion idempotence.
func (s *Store) FindEdge(sourceID, targetID, relation string) (*types.KGEdge, error) {
	row := s.db.QueryRow(`
		SELECT id, source_id, target_id, rel_type, created_at, weight
		FROM kg_relationships WHERE source_id = ? AND target_id = ? AND rel_type = ?`,
		sourceID, targetID, relation)
	var e types.KGEdge
	var weight sql.NullFloat64
	err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Relation, &e.CreatedAt, &weight)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find edge: %w", err)
	}
	e.Weight = weight.Float64
	return &e, nil
}

// OutgoingEdges returns edges leaving entityID, for graph expansion.
func (s *Store) OutgoingEdges(entityID string) ([]*types.KGEdge, error) {
	rows, err := s.db.Query(`
		SELECT id, source_id, target_id, rel_type, created_at, weight
		FROM kg_relationships WHERE source_id = ?`, entityID)
	if err != nil {
		return nil, fmt.Errorf("query outgoing edges: %w", err)
	}
	defer rows.Close()

	var out []*types.KGEdge
	for rows.Next() {
		var e types.KGEdge
		var weight sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Relation, &e.CreatedAt, &weight); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Weight = weight.Float64
		out = append(out, &e)
	}
	return out, rows.Err()
}

// InsertObservation writes a new KG observation.
func (s *Store) InsertObservation(o *types.KGObservation) error {
	_, err := s.db.Exec(`
		INSERT INTO kg_observations (id, label, body, source_thought_id, embedding, embedding_model, embedding_dim)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Label, o.Body, nullString(o.SourceThoughtID), encodeEmbedding(o.Embedding), nullString(o.EmbeddingModel), o.EmbeddingDim,
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// AllObservationsMismatched returns observations whose embedding is stale,
// for `maintain reembed_kg`.
func (s *Store) AllObservationsMismatched(model string, dim int) ([]*types.KGObservation, error) {
	rows, err := s.db.Query(`
		SELECT id, label, body, source_thought_id, created_at, embedding, embedding_model, embedding_dim
		FROM kg_observations WHERE embedding_model != ? OR embedding_dim != ?`, model, dim)
	if err != nil {
		return nil, fmt.Errorf("query mismatched observations: %w", err)
	}
	defer rows.Close()

	var out []*types.KGObservation
	for rows.Next() {
		var o types.KGObservation
		var sourceThoughtID, embModel sql.NullString
		var embBlob []byte
		if err := rows.Scan(&o.ID, &o.Label, &o.Body, &sourceThoughtID, &o.CreatedAt, &embBlob, &embModel, &o.EmbeddingDim); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.SourceThoughtID = sourceThoughtID.String
		o.EmbeddingModel = embModel.String
		o.Embedding = decodeEmbedding(embBlob)
		out = append(out, &o)
	}
	return out, rows.Err()
}

// UpdateObservationEmbedding writes a freshly re-embedded vector.
func (s *Store) UpdateObservationEmbedding(id string, embedding []float32, model string, dim int) error {
	_, err := s.db.Exec(`UPDATE kg_observations SET embedding = ?, embedding_model = ?, embedding_dim = ? WHERE id = ?`,
		encodeEmbedding(embedding), model, dim, id)
	if err != nil {
		return fmt.Errorf("update observation embedding: %w", err)
	}
	return nil
}
