package kg

import (
	"fmt"

	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// ListPendingEntityCandidates returns pending entity candidates at or above
// minConfidence, newest first, for the moderation queue.
func ListPendingEntityCandidates(st *store.Store, minConfidence float64, limit int) ([]*types.EntityCandidate, error) {
	return st.ListEntityCandidates(types.CandidatePending, minConfidence, limit)
}

// ListPendingEdgeCandidates returns pending edge candidates at or above
// minConfidence, newest first.
func ListPendingEdgeCandidates(st *store.Store, minConfidence float64, limit int) ([]*types.EdgeCandidate, error) {
	return st.ListEdgeCandidates(types.CandidatePending, minConfidence, limit)
}

// RejectEntityCandidate marks a pending entity candidate rejected without
// promoting it.
func RejectEntityCandidate(st *store.Store, id string) error {
	c, err := st.GetEntityCandidate(id)
	if err != nil {
		return fmt.Errorf("get entity candidate: %w", err)
	}
	if c == nil {
		return fmt.Errorf("entity candidate %s not found", id)
	}
	return st.SetEntityCandidateStatus(id, types.CandidateRejected, "")
}

// RejectEdgeCandidate marks a pending edge candidate rejected.
func RejectEdgeCandidate(st *store.Store, id string) error {
	c, err := st.GetEdgeCandidate(id)
	if err != nil {
		return fmt.Errorf("get edge candidate: %w", err)
	}
	if c == nil {
		return fmt.Errorf("edge candidate %s not found", id)
	}
	return st.SetEdgeCandidateStatus(id, types.CandidateRejected, "")
}
