// Package injection turns a reasoning mode and an injection scale into a
// concrete memory-retrieval plan: how many knowledge-graph entities to pull
// in and how many hops to traverse, then renders the result into the text
// block that gets prepended to a thought's context.
package injection

import (
	"context"
	"fmt"
	"strings"

	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/kg"
	"github.com/orbitalmind/kernel/internal/types"
)

// Plan is the resolved retrieval parameters for one injection.
type Plan struct {
	Mode       types.Mode
	Scale      types.InjectionScale
	TopK       int
	Depth      int
	Frameworks map[string]string
	EdgeBoosts map[string]float64
	Weights    config.OrbitalWeights
}

// Resolve looks up the fixed (top_k, depth) pair for scale and layers the
// mode's submode profile on top: frameworks, per-relation edge boosts, and
// orbital weights come from the profile. The scale table itself is fixed
// and never overridden by a submode profile.
func Resolve(cfg *config.Config, mode types.Mode, scale types.InjectionScale) (Plan, error) {
	if !scale.Valid() {
		return Plan{}, fmt.Errorf("invalid injection scale %d", scale)
	}
	params, ok := config.ScaleTable[scale]
	if !ok {
		return Plan{}, fmt.Errorf("no scale table entry for scale %d", scale)
	}
	profile := cfg.Profile(mode)
	return Plan{
		Mode:       mode,
		Scale:      scale,
		TopK:       params.TopK,
		Depth:      params.Depth,
		Frameworks: profile.Frameworks,
		EdgeBoosts: profile.EdgeBoosts,
		Weights:    profile.OrbitalWeights,
	}, nil
}

// Inject runs the plan against the knowledge graph and renders the result
// into the text block injected ahead of a thought. Scale 0 is a deliberate
// no-op: it returns an empty string without touching the store.
func Inject(ctx context.Context, engine *kg.Engine, emb embedding.Client, plan Plan, queryText string) (string, []types.ScoredEntity, error) {
	if plan.TopK == 0 {
		return "", nil, nil
	}

	vec, err := emb.Embed(ctx, queryText)
	if err != nil {
		return "", nil, fmt.Errorf("embed injection query: %w", err)
	}

	results, err := engine.Retrieve(ctx, vec, plan.TopK, plan.Depth, plan.Weights, plan.EdgeBoosts)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve for injection: %w", err)
	}
	if len(results) == 0 {
		return "", nil, nil
	}

	return Render(results), results, nil
}

// Render formats scored entities into a plain-text context block, direct
// hits first, graph-expanded neighbors annotated with the edge they arrived
// through.
func Render(results []types.ScoredEntity) string {
	var b strings.Builder
	b.WriteString("Relevant context:\n")
	for _, r := range results {
		if r.Hop == 0 {
			fmt.Fprintf(&b, "- %s (%s)\n", r.Entity.Name, r.Entity.Type)
		} else {
			fmt.Fprintf(&b, "- %s (%s) via %s\n", r.Entity.Name, r.Entity.Type, r.ViaEdge)
		}
	}
	return b.String()
}
