package kg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// PromoteEntityCandidate approves a pending entity candidate and promotes it
// to a first-class kg_entities row. Promotion is idempotent: approving an
// already-approved candidate again returns the entity id it was promoted to
// the first time instead of creating a duplicate.
func PromoteEntityCandidate(ctx context.Context, st *store.Store, emb embedding.Client, candidateID string) (*types.KGEntity, error) {
	cand, err := st.GetEntityCandidate(candidateID)
	if err != nil {
		return nil, fmt.Errorf("get entity candidate: %w", err)
	}
	if cand == nil {
		return nil, fmt.Errorf("entity candidate %s not found", candidateID)
	}

	if cand.PromotedEntityID != "" {
		return st.GetEntity(cand.PromotedEntityID)
	}

	existing, err := st.FindEntityByNameType(cand.Name, cand.Type)
	if err != nil {
		return nil, fmt.Errorf("check existing entity: %w", err)
	}
	if existing != nil {
		if err := st.SetEntityCandidateStatus(candidateID, types.CandidateApproved, existing.ID); err != nil {
			return nil, fmt.Errorf("record promotion: %w", err)
		}
		return existing, nil
	}

	vec, err := emb.Embed(ctx, cand.Name)
	if err != nil {
		return nil, fmt.Errorf("embed entity name: %w", err)
	}

	entity := &types.KGEntity{
		ID:             uuid.NewString(),
		Name:           cand.Name,
		Type:           cand.Type,
		Properties:     map[string]string{},
		Embedding:      vec,
		EmbeddingModel: emb.Model(),
		EmbeddingDim:   emb.Dimension(),
		Mass:           1.0,
		Velocity:       0,
		LastAccessed:   time.Now(),
	}
	if err := st.InsertEntity(entity); err != nil {
		return nil, fmt.Errorf("insert entity: %w", err)
	}
	if err := st.SetEntityCandidateStatus(candidateID, types.CandidateApproved, entity.ID); err != nil {
		return nil, fmt.Errorf("record promotion: %w", err)
	}
	return entity, nil
}

// PromoteEdgeCandidate approves a pending edge candidate, resolving its
// source/target names to entities and promoting it to a kg_relationships
// row. Both endpoint entities must already exist (promoted from their own
// candidates, or pre-existing) — an edge candidate whose endpoints haven't
// been promoted yet fails with a clear error rather than silently creating
// placeholder entities.
func PromoteEdgeCandidate(st *store.Store, candidateID string) (*types.KGEdge, error) {
	cand, err := st.GetEdgeCandidate(candidateID)
	if err != nil {
		return nil, fmt.Errorf("get edge candidate: %w", err)
	}
	if cand == nil {
		return nil, fmt.Errorf("edge candidate %s not found", candidateID)
	}

	if cand.PromotedEdgeID != "" {
		edge, err := st.FindEdge(cand.SourceName, cand.TargetName, cand.Relation)
		if err != nil {
			return nil, err
		}
		if edge != nil {
			return edge, nil
		}
	}

	source, err := resolveEntityByName(st, cand.SourceName)
	if err != nil {
		return nil, err
	}
	target, err := resolveEntityByName(st, cand.TargetName)
	if err != nil {
		return nil, err
	}

	existing, err := st.FindEdge(source.ID, target.ID, cand.Relation)
	if err != nil {
		return nil, fmt.Errorf("check existing edge: %w", err)
	}
	if existing != nil {
		if err := st.SetEdgeCandidateStatus(candidateID, types.CandidateApproved, existing.ID); err != nil {
			return nil, fmt.Errorf("record promotion: %w", err)
		}
		return existing, nil
	}

	edge := &types.KGEdge{
		ID:       uuid.NewString(),
		SourceID: source.ID,
		TargetID: target.ID,
		Relation: cand.Relation,
		Weight:   cand.Confidence,
	}
	if err := st.InsertEdge(edge); err != nil {
		return nil, fmt.Errorf("insert edge: %w", err)
	}
	if err := st.SetEdgeCandidateStatus(candidateID, types.CandidateApproved, edge.ID); err != nil {
		return nil, fmt.Errorf("record promotion: %w", err)
	}
	return edge, nil
}

func resolveEntityByName(st *store.Store, name string) (*types.KGEntity, error) {
	entity, err := st.FindEntityByNameType(name, "concept")
	if err != nil {
		return nil, fmt.Errorf("resolve entity %q: %w", name, err)
	}
	if entity != nil {
		return entity, nil
	}
	entity, err = st.FindEntityByNameType(name, "term")
	if err != nil {
		return nil, fmt.Errorf("resolve entity %q: %w", name, err)
	}
	if entity == nil {
		return nil, fmt.Errorf("edge endpoint %q has not been promoted to an entity yet", name)
	}
	return entity, nil
}
