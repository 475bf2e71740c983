package kg

import (
	"math"
	"time"

	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/types"
)

// recencyFactor applies an exponential half-life decay to how long ago an
// entity was last accessed. A half-life of h hours means the factor drops
// to 0.5 after h hours, 0.25 after 2h, and so on.
func recencyFactor(lastAccessed time.Time, halfLifeHours float64, now time.Time) float64 {
	if lastAccessed.IsZero() || halfLifeHours <= 0 {
		return 1.0
	}
	elapsedHours := now.Sub(lastAccessed).Hours()
	if elapsedHours <= 0 {
		return 1.0
	}
	return math.Exp2(-elapsedHours / halfLifeHours)
}

// Orbit computes an entity's composite relevance score: a weighted blend of
// embedding similarity, recency (orbital decay), and access frequency
// (velocity), following the mass/velocity/orbit metaphor the data model
// names its columns after.
func Orbit(e *types.KGEntity, similarity float64, weights config.OrbitalWeights, mechanics config.OrbitalMechanicsConfig, now time.Time) float64 {
	recency := recencyFactor(e.LastAccessed, mechanics.HalfLifeHours, now)
	velocityTerm := math.Log1p(e.Velocity) * mechanics.AccessBoost
	massTerm := e.Mass

	score := weights.Similarity*similarity + weights.Recency*recency + weights.Access*velocityTerm
	return score + 0.05*massTerm
}

// BumpMass increases an entity's significance on repeated reinforcement
// (e.g. re-extraction of the same candidate, or explicit promotion votes).
func BumpMass(current float64, delta float64) float64 {
	next := current + delta
	if next > 10 {
		return 10
	}
	return next
}
