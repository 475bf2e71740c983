package injection

import (
	"testing"

	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/types"
)

func TestResolveMatchesFixedScaleTable(t *testing.T) {
	cfg := config.Default()
	cases := map[types.InjectionScale][2]int{
		0: {0, 0},
		1: {5, 1},
		2: {10, 1},
		3: {20, 2},
	}
	for scale, want := range cases {
		plan, err := Resolve(cfg, types.ModePlan, scale)
		if err != nil {
			t.Fatalf("resolve scale %d: %v", scale, err)
		}
		if plan.TopK != want[0] || plan.Depth != want[1] {
			t.Fatalf("scale %d: expected (%d,%d), got (%d,%d)", scale, want[0], want[1], plan.TopK, plan.Depth)
		}
	}
}

func TestResolveRejectsOutOfRangeScale(t *testing.T) {
	cfg := config.Default()
	if _, err := Resolve(cfg, types.ModeBuild, types.InjectionScale(4)); err == nil {
		t.Fatalf("expected error for out-of-range scale")
	}
}

func TestResolveCarriesSubmodeOrbitalWeights(t *testing.T) {
	cfg := config.Default()
	custom := config.OrbitalWeights{Similarity: 0.9, Recency: 0.05, Access: 0.05}
	profile := cfg.Submodes[string(types.ModeDebug)]
	profile.OrbitalWeights = custom
	cfg.Submodes[string(types.ModeDebug)] = profile

	plan, err := Resolve(cfg, types.ModeDebug, types.InjectionScale(3))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if plan.Weights != custom {
		t.Fatalf("expected plan to carry the debug submode's orbital_weights override, got %+v", plan.Weights)
	}
}
