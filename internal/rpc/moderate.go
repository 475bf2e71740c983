package rpc

import (
	"context"
	"fmt"

	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/kg"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// ModerateParams is the moderate() request shape: a fixed action name plus
// the fields each action needs.
type ModerateParams struct {
	Action        string  `json:"action" validate:"required,oneof=list_pending_entities list_pending_edges approve_entity approve_edge reject_entity reject_edge"`
	CandidateID   string  `json:"candidate_id"`
	MinConfidence float64 `json:"min_confidence"`
	Limit         int     `json:"limit"`
}

// RegisterModerate wires the moderate method to the knowledge-graph
// candidate review queue: listing pending entity/edge candidates, and
// approving (promoting) or rejecting them.
func RegisterModerate(d *Dispatcher, st *store.Store, emb embedding.Client) {
	d.Register("moderate", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[ModerateParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode moderate params", err)
		}
		if err := ValidateParams(p); err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}

		limit := p.Limit
		if limit <= 0 {
			limit = 50
		}

		switch p.Action {
		case "list_pending_entities":
			return kg.ListPendingEntityCandidates(st, p.MinConfidence, limit)
		case "list_pending_edges":
			return kg.ListPendingEdgeCandidates(st, p.MinConfidence, limit)
		case "approve_entity":
			if p.CandidateID == "" {
				return nil, types.NewError(types.KindInvalidParams, "candidate_id required for approve_entity", nil)
			}
			entity, err := kg.PromoteEntityCandidate(ctx, st, emb, p.CandidateID)
			if err != nil {
				return nil, types.NewError(types.KindStoreError, "promote entity candidate", err)
			}
			return entity, nil
		case "approve_edge":
			if p.CandidateID == "" {
				return nil, types.NewError(types.KindInvalidParams, "candidate_id required for approve_edge", nil)
			}
			edge, err := kg.PromoteEdgeCandidate(st, p.CandidateID)
			if err != nil {
				return nil, types.NewError(types.KindStoreError, "promote edge candidate", err)
			}
			return edge, nil
		case "reject_entity":
			if p.CandidateID == "" {
				return nil, types.NewError(types.KindInvalidParams, "candidate_id required for reject_entity", nil)
			}
			if err := kg.RejectEntityCandidate(st, p.CandidateID); err != nil {
				return nil, types.NewError(types.KindStoreError, "reject entity candidate", err)
			}
			return map[string]bool{"rejected": true}, nil
		case "reject_edge":
			if p.CandidateID == "" {
				return nil, types.NewError(types.KindInvalidParams, "candidate_id required for reject_edge", nil)
			}
			if err := kg.RejectEdgeCandidate(st, p.CandidateID); err != nil {
				return nil, types.NewError(types.KindStoreError, "reject edge candidate", err)
			}
			return map[string]bool{"rejected": true}, nil
		default:
			return nil, types.NewError(types.KindInvalidParams, fmt.Sprintf("unknown moderate action %q", p.Action), nil)
		}
	})
}
