package rpc

import (
	"context"
	"fmt"

	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/maintenance"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// MaintainParams is the maintain() request shape: a fixed action name plus
// an optional day threshold for the candidate sweep.
type MaintainParams struct {
	Action        string `json:"action" validate:"required,oneof=reembed_thoughts reembed_kg embed_pending sweep_candidates ensure_continuity_fields health"`
	OlderThanDays int    `json:"older_than_days"`
	Limit         int    `json:"limit"`
	DryRun        bool   `json:"dry_run"`
}

// RegisterMaintain wires the maintain method to the maintenance sweeps.
func RegisterMaintain(d *Dispatcher, st *store.Store, emb embedding.Client) {
	d.Register("maintain", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[MaintainParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode maintain params", err)
		}
		if err := ValidateParams(p); err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}

		switch p.Action {
		case "reembed_thoughts":
			return maintenance.ReembedThoughts(ctx, st, emb, p.DryRun)
		case "reembed_kg":
			return maintenance.ReembedKG(ctx, st, emb, p.DryRun)
		case "embed_pending":
			return maintenance.EmbedPending(ctx, st, emb, p.Limit, p.DryRun)
		case "sweep_candidates":
			days := p.OlderThanDays
			if days <= 0 {
				days = 30
			}
			return maintenance.SweepCandidates(st, days, p.DryRun)
		case "ensure_continuity_fields":
			return maintenance.EnsureContinuityFields(st)
		case "health":
			return maintenance.Snapshot(st, emb)
		default:
			return nil, types.NewError(types.KindInvalidParams, fmt.Sprintf("unknown maintain action %q", p.Action), nil)
		}
	})
}
