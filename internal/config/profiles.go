// Package config loads the mode profile table and retrieval/orbital-mechanics
// knobs that drive the Injection Planner and KG Engine scoring, the way the
// teacher's internal/agents.LoadTeamsConfig loads teams.yaml.
package config

import (
	"fmt"
	"os"

	"github.com/orbitalmind/kernel/internal/types"
	"gopkg.in/yaml.v3"
)

// OrbitalWeights are the three scoring weights for similarity, recency, and
// access-frequency. Mass (significance) has no weight here: kg.Orbit adds
// it with a fixed 0.05 multiplier.
type OrbitalWeights struct {
	Similarity float64 `yaml:"similarity"`
	Recency    float64 `yaml:"recency"`
	Access     float64 `yaml:"access"`
}

// SubmodeProfile is one `[submodes.<mode>]` block.
type SubmodeProfile struct {
	InjectionScale  int                `yaml:"injection_scale"`
	Significance    float64            `yaml:"significance"`
	KGTraverseDepth int                `yaml:"kg_traverse_depth"`
	Frameworks      map[string]string  `yaml:"frameworks"`
	OrbitalWeights  OrbitalWeights     `yaml:"orbital_weights"`
	AutoExtract     bool               `yaml:"auto_extract"`
	EdgeBoosts      map[string]float64 `yaml:"edge_boosts"`
}

// RetrievalConfig is the `[retrieval]` section.
type RetrievalConfig struct {
	MaxScale            int     `yaml:"max_scale"`
	DefaultScale         int     `yaml:"default_scale"`
	KGOnly               bool    `yaml:"kg_only"`
	SimilarityThreshold  float64 `yaml:"similarity_threshold"`
	TopK                 int     `yaml:"top_k"`
}

// OrbitalMechanicsConfig is the `[orbital_mechanics]` section.
type OrbitalMechanicsConfig struct {
	DecayRate    float64        `yaml:"decay_rate"`
	AccessBoost  float64        `yaml:"access_boost"`
	Weights      OrbitalWeights `yaml:"weights"`
	HalfLifeHours float64       `yaml:"half_life_hours"`
}

// SystemConfig is the `[system]` section: embedding + store handshake.
// EmbeddingProvider is the base URL of the embedding HTTP endpoint;
// EmbeddingAPIKey is never read from YAML — it comes only from the
// KERNEL_EMBEDDING_API_KEY environment variable (see applyEnvOverrides).
type SystemConfig struct {
	EmbeddingProvider  string `yaml:"embedding_provider"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	EmbeddingAPIKey    string `yaml:"-"`
	StoreURL           string `yaml:"store_url"`
	StoreNamespace     string `yaml:"store_namespace"`
	StoreDatabase      string `yaml:"store_database"`
}

// ServerConfig is the `[server]` section: HTTP transport bind address and
// the bearer token callers must present. AuthToken is never read from
// YAML — it comes only from the KERNEL_AUTH_TOKEN environment variable
// (see applyEnvOverrides), so a bearer secret is never committed alongside the
// rest of the config file.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"-"`
}

// Config is the full configuration document.
type Config struct {
	System            SystemConfig              `yaml:"system"`
	Server            ServerConfig              `yaml:"server"`
	Retrieval         RetrievalConfig           `yaml:"retrieval"`
	OrbitalMechanics  OrbitalMechanicsConfig    `yaml:"orbital_mechanics"`
	Submodes          map[string]SubmodeProfile `yaml:"submodes"`
}

// ScaleParams is the fixed mapping the Injection Planner uses: scale ->
// (top_k, traverse depth). This table is fixed, not
// configurable, so it lives as Go code rather than YAML.
type ScaleParams struct {
	TopK  int
	Depth int
}

// ScaleTable is the closed {0,1,2,3} -> (top_k, depth) mapping.
var ScaleTable = map[types.InjectionScale]ScaleParams{
	0: {TopK: 0, Depth: 0},
	1: {TopK: 5, Depth: 1},
	2: {TopK: 10, Depth: 1},
	3: {TopK: 20, Depth: 2},
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return &cfg, nil
}

// applyEnvOverrides reads the two secrets the config file itself never
// carries: the embedding provider's API key and the HTTP transport's bearer
// token. Both are optional — an unset KERNEL_AUTH_TOKEN leaves auth
// disabled, and an unset KERNEL_EMBEDDING_API_KEY leaves the embedding
// client sending unauthenticated requests (fine for a local provider).
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KERNEL_EMBEDDING_API_KEY"); v != "" {
		c.System.EmbeddingAPIKey = v
	}
	if v := os.Getenv("KERNEL_AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
}

// Default returns a configuration with sensible built-in values, used when
// no config file is supplied (tests, first run).
func Default() *Config {
	cfg := &Config{
		System: SystemConfig{
			EmbeddingProvider:  "http://localhost:8080",
			EmbeddingModel:     "text-embedding-local",
			EmbeddingDimension: 768,
			StoreDatabase:      "kernel.db",
		},
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8765
	}
	if c.Retrieval.MaxScale == 0 {
		c.Retrieval.MaxScale = 3
	}
	if c.Retrieval.DefaultScale == 0 {
		c.Retrieval.DefaultScale = 1
	}
	if c.Retrieval.SimilarityThreshold == 0 {
		c.Retrieval.SimilarityThreshold = 0.3
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.OrbitalMechanics.HalfLifeHours == 0 {
		c.OrbitalMechanics.HalfLifeHours = 72
	}
	if c.OrbitalMechanics.Weights == (OrbitalWeights{}) {
		c.OrbitalMechanics.Weights = OrbitalWeights{Similarity: 0.5, Recency: 0.2, Access: 0.15}
	}
	if c.Submodes == nil {
		c.Submodes = DefaultSubmodes()
	}
}

// DefaultSubmodes returns the built-in profile for every mode in
// types.AllModes, so an unconfigured mode still has a usable profile.
func DefaultSubmodes() map[string]SubmodeProfile {
	base := SubmodeProfile{
		InjectionScale:  1,
		Significance:    0.5,
		KGTraverseDepth: 1,
		OrbitalWeights:  OrbitalWeights{Similarity: 0.5, Recency: 0.2, Access: 0.15},
		AutoExtract:     true,
		EdgeBoosts:      map[string]float64{},
	}
	profiles := map[string]SubmodeProfile{}
	for m := range types.AllModes {
		p := base
		profiles[string(m)] = p
	}
	plan := profiles[string(types.ModePlan)]
	plan.InjectionScale = 2
	plan.Significance = 0.6
	profiles[string(types.ModePlan)] = plan

	debug := profiles[string(types.ModeDebug)]
	debug.InjectionScale = 3
	debug.KGTraverseDepth = 2
	debug.Significance = 0.7
	debug.EdgeBoosts = map[string]float64{"depends_on": 1.5, "causes": 1.8, "uses": 1.2}
	profiles[string(types.ModeDebug)] = debug

	solve := profiles[string(types.ModeProblemSolving)]
	solve.InjectionScale = 3
	solve.KGTraverseDepth = 2
	solve.Significance = 0.65
	solve.EdgeBoosts = map[string]float64{"implements": 1.4, "extends": 1.3}
	profiles[string(types.ModeProblemSolving)] = solve

	return profiles
}

// Profile returns the submode profile for mode, falling back to the
// built-in default if the loaded config omits it.
func (c *Config) Profile(mode types.Mode) SubmodeProfile {
	if p, ok := c.Submodes[string(mode)]; ok {
		return p
	}
	return DefaultSubmodes()[string(mode)]
}
