package rpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/types"
)

// RememberParams is the remember() request shape: an explicit, labeled
// observation the caller wants persisted verbatim, bypassing the
// best-effort extraction think() runs automatically.
type RememberParams struct {
	Label           string `json:"label" validate:"required"`
	Body            string `json:"body" validate:"required"`
	SourceThoughtID string `json:"source_thought_id"`
}

// RegisterRemember wires the remember method.
func RegisterRemember(d *Dispatcher, st *store.Store, emb embedding.Client) {
	d.Register("remember", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[RememberParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode remember params", err)
		}
		if err := ValidateParams(p); err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}

		obs := &types.KGObservation{
			ID:              uuid.NewString(),
			Label:           p.Label,
			Body:            p.Body,
			SourceThoughtID: p.SourceThoughtID,
		}

		vec, err := emb.Embed(ctx, p.Body)
		if err != nil {
			// Save-first applies here too: the observation is persisted
			// without an embedding rather than dropped on a provider outage.
			if ierr := st.InsertObservation(obs); ierr != nil {
				return nil, types.NewError(types.KindStoreError, "persist observation", ierr)
			}
			return obs, nil
		}
		obs.Embedding = vec
		obs.EmbeddingModel = emb.Model()
		obs.EmbeddingDim = emb.Dimension()
		if err := st.InsertObservation(obs); err != nil {
			return nil, types.NewError(types.KindStoreError, "persist observation", err)
		}
		return obs, nil
	})
}
