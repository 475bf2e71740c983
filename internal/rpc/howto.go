package rpc

import (
	"context"

	"github.com/orbitalmind/kernel/internal/delegation"
	"github.com/orbitalmind/kernel/internal/types"
)

// HowtoResult is a static usage reference for the tool roster and the
// closed sets (modes, scales) a caller has to pick from — cheap to compute
// so it's always safe to call before a real think()/search().
type HowtoResult struct {
	Modes            []string `json:"modes"`
	Scales           []int    `json:"scales"`
	DelegationTools  []string `json:"delegation_tools"`
	Notes            string   `json:"notes"`
}

// RegisterHowto wires the howto method.
func RegisterHowto(d *Dispatcher) {
	d.Register("howto", func(ctx context.Context, raw interface{}) (interface{}, error) {
		modes := make([]string, 0, len(types.AllModes))
		for m := range types.AllModes {
			modes = append(modes, string(m))
		}
		tools := make([]string, 0, len(delegation.Contracts))
		for t := range delegation.Contracts {
			tools = append(tools, t)
		}
		return HowtoResult{
			Modes:           modes,
			Scales:          []int{0, 1, 2, 3},
			DelegationTools: tools,
			Notes:           "scale 0 skips memory injection entirely; scales 1-3 map to fixed (top_k, depth) pairs, not configurable per call",
		}, nil
	})
}
