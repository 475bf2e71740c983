package types

import "time"

// CandidateStatus is the moderation state of a staged entity or edge.
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "pending"
	CandidateApproved CandidateStatus = "approved"
	CandidateRejected CandidateStatus = "rejected"
)

// KGEntity is a node in the knowledge graph. Field names follow the
// orbital-mechanics metaphor from the glossary: mass is significance,
// velocity is access frequency, orbit is a distance metric from the
// query that last touched it.
type KGEntity struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Properties     map[string]string `json:"properties,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Embedding      []float32         `json:"embedding,omitempty"`
	EmbeddingModel string            `json:"embedding_model"`
	EmbeddingDim   int               `json:"embedding_dim"`
	Mass           float64           `json:"mass"`
	Orbit          float64           `json:"orbit"`
	Velocity       float64           `json:"velocity"`
	LastAccessed   time.Time         `json:"last_accessed"`
}

// KGEdge is a directed relation between two entities.
type KGEdge struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	TargetID   string    `json:"target_id"`
	Relation   string    `json:"relation"`
	CreatedAt  time.Time `json:"created_at"`
	Weight     float64   `json:"weight,omitempty"`
}

// KGObservation is a timestamped textual fact, optionally sourced from a thought.
type KGObservation struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Body           string    `json:"body"`
	SourceThoughtID string   `json:"source_thought_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Embedding      []float32 `json:"embedding,omitempty"`
	EmbeddingModel string    `json:"embedding_model"`
	EmbeddingDim   int       `json:"embedding_dim"`
}

// EntityCandidate is a staged entity awaiting moderation.
type EntityCandidate struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Confidence float64         `json:"confidence"`
	Status     CandidateStatus `json:"status"`
	SourceThoughtID string     `json:"source_thought_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	AcceptedAt *time.Time      `json:"accepted_at,omitempty"`
	PromotedEntityID string    `json:"promoted_entity_id,omitempty"`
}

// EdgeCandidate is a staged edge awaiting moderation; endpoints are
// referenced by name and resolved to ids at promotion time.
type EdgeCandidate struct {
	ID         string          `json:"id"`
	SourceName string          `json:"source_name"`
	TargetName string          `json:"target_name"`
	Relation   string          `json:"relation"`
	Confidence float64         `json:"confidence"`
	Status     CandidateStatus `json:"status"`
	SourceThoughtID string     `json:"source_thought_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	AcceptedAt *time.Time      `json:"accepted_at,omitempty"`
	PromotedEdgeID string      `json:"promoted_edge_id,omitempty"`
}

// ScoredEntity is a KGEntity with the composite retrieval score and the
// traversal hop at which it was discovered (0 = stage-1 vector hit).
type ScoredEntity struct {
	Entity     KGEntity `json:"entity"`
	Score      float64  `json:"score"`
	Similarity float64  `json:"similarity"`
	Hop        int      `json:"hop"`
	ViaEdge    string   `json:"via_edge,omitempty"`
}
