package rpc

import (
	"context"
	"fmt"

	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/injection"
	"github.com/orbitalmind/kernel/internal/kg"
	"github.com/orbitalmind/kernel/internal/thought"
	"github.com/orbitalmind/kernel/internal/types"
)

// SearchParams is the search() request shape: an explicit scale override
// for an ad hoc retrieval outside the think() flow.
type SearchParams struct {
	Query string `json:"query" validate:"required"`
	Mode  string `json:"mode"`
	Scale int    `json:"scale" validate:"min=0,max=3"`
}

// SearchResult is what search() returns: KG entities and thoughts unified
// behind one ranked response, per the fixed RPC surface's "search (KG +
// thoughts unified)" contract.
type SearchResult struct {
	Context  string                `json:"context"`
	Entities []types.ScoredEntity  `json:"entities"`
	Thoughts []types.ScoredThought `json:"thoughts"`
}

// RegisterSearch wires the search method.
func RegisterSearch(d *Dispatcher, cfg *config.Config, kgEngine *kg.Engine, emb embedding.Client, thoughtEngine *thought.Engine) {
	d.Register("search", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[SearchParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode search params", err)
		}
		if err := ValidateParams(p); err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}
		mode := types.Mode(p.Mode)
		if mode == "" || !mode.Valid() {
			mode = types.ModeBuild
		}
		scale := types.InjectionScale(p.Scale)
		if scale == 0 {
			scale = types.InjectionScale(cfg.Retrieval.DefaultScale)
		}
		plan, err := injection.Resolve(cfg, mode, scale)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}
		if plan.TopK == 0 {
			return SearchResult{}, nil
		}

		vec, err := emb.Embed(ctx, p.Query)
		if err != nil {
			return nil, types.NewError(types.KindEmbeddingError, fmt.Sprintf("search %q", p.Query), err)
		}
		entities, err := kgEngine.Retrieve(ctx, vec, plan.TopK, plan.Depth, plan.Weights, plan.EdgeBoosts)
		if err != nil {
			return nil, types.NewError(types.KindEmbeddingError, fmt.Sprintf("search %q", p.Query), err)
		}

		var thoughts []types.ScoredThought
		if !cfg.Retrieval.KGOnly {
			thoughts, err = thoughtEngine.Search(vec, plan.TopK)
			if err != nil {
				return nil, err
			}
		}

		return SearchResult{Context: injection.Render(entities), Entities: entities, Thoughts: thoughts}, nil
	})
}
