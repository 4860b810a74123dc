// Package stage loads and validates stage configuration files. A stage is
// the external contract between the content layer and the engine: metadata
// for scoring (budget, SLA target), the fixed topology nodes, and the timed
// wave list.
//
// The canonical format is JSON; YAML files are accepted by extension since
// hand-authored stages are easier to maintain that way. Validation is
// all-or-nothing: a config that fails Validate must not be fed to the
// engine, so a malformed stage never half-loads.
package stage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level stage definition.
type Config struct {
	Meta  Meta   `json:"meta" yaml:"meta"`
	Map   Map    `json:"map" yaml:"map"`
	Waves []Wave `json:"waves" yaml:"waves"`
}

// Meta carries the scoring parameters the UI layer consumes.
type Meta struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Budget      uint32  `json:"budget" yaml:"budget"`
	SLATarget   float64 `json:"sla_target" yaml:"sla_target"`
}

// Map holds the stage's pre-placed topology.
type Map struct {
	FixedNodes []FixedNode `json:"fixed_nodes" yaml:"fixed_nodes"`
}

// FixedNode is one pre-placed node. Type is one of "gateway", "lb",
// "server", "db" (case-insensitive).
type FixedNode struct {
	ID   string  `json:"id" yaml:"id"`
	Type string  `json:"type" yaml:"type"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

// Wave is one timed packet batch. PacketType is one of "NORMAL",
// "SYN_FLOOD", "HEAVY_TASK", "KILLER" (case-insensitive, underscore
// optional). Speed is in pixels per second. SpeedVariance and Complexity
// are optional; zero values let the engine pick its defaults.
type Wave struct {
	TimeStartMs   uint32  `json:"time_start_ms" yaml:"time_start_ms"`
	SourceID      string  `json:"source_id" yaml:"source_id"`
	Count         uint32  `json:"count" yaml:"count"`
	DurationMs    uint32  `json:"duration_ms" yaml:"duration_ms"`
	PacketType    string  `json:"packet_type" yaml:"packet_type"`
	Speed         float64 `json:"speed" yaml:"speed"`
	SpeedVariance float64 `json:"speed_variance,omitempty" yaml:"speed_variance,omitempty"`
	Complexity    uint8   `json:"complexity,omitempty" yaml:"complexity,omitempty"`
}

var nodeTypes = map[string]bool{
	"gateway": true,
	"lb":      true,
	"server":  true,
	"db":      true,
}

var packetTypes = map[string]bool{
	"NORMAL":     true,
	"SYN_FLOOD":  true,
	"SYNFLOOD":   true,
	"HEAVY_TASK": true,
	"HEAVYTASK":  true,
	"KILLER":     true,
}

// Parse decodes a JSON stage config and validates it.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse stage config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseYAML decodes a YAML stage config and validates it.
func ParseYAML(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse stage config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a stage file, picking the decoder by file extension
// (.yaml/.yml → YAML, anything else → JSON).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read stage file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// Validate checks the config for completeness and internal consistency.
// It returns the first problem found; a nil return means the config is
// safe to hand to the engine.
func (c Config) Validate() error {
	if c.Meta.Title == "" {
		return fmt.Errorf("stage config: meta.title is required")
	}
	if c.Meta.SLATarget < 0 || c.Meta.SLATarget > 1 {
		return fmt.Errorf("stage config: meta.sla_target %v outside [0, 1]", c.Meta.SLATarget)
	}
	if len(c.Map.FixedNodes) == 0 {
		return fmt.Errorf("stage config: map.fixed_nodes must not be empty")
	}
	seen := make(map[string]bool, len(c.Map.FixedNodes))
	for i, n := range c.Map.FixedNodes {
		if n.ID == "" {
			return fmt.Errorf("stage config: fixed_nodes[%d]: id is required", i)
		}
		if seen[n.ID] {
			return fmt.Errorf("stage config: fixed_nodes[%d]: duplicate id %q", i, n.ID)
		}
		seen[n.ID] = true
		if !nodeTypes[strings.ToLower(n.Type)] {
			return fmt.Errorf("stage config: fixed_nodes[%d]: unknown type %q", i, n.Type)
		}
	}
	for i, w := range c.Waves {
		if w.Count == 0 {
			return fmt.Errorf("stage config: waves[%d]: count must be positive", i)
		}
		if !seen[w.SourceID] {
			return fmt.Errorf("stage config: waves[%d]: source_id %q not in fixed_nodes", i, w.SourceID)
		}
		if !packetTypes[normalizePacketType(w.PacketType)] {
			return fmt.Errorf("stage config: waves[%d]: unknown packet_type %q", i, w.PacketType)
		}
		if w.Speed <= 0 {
			return fmt.Errorf("stage config: waves[%d]: speed must be positive", i)
		}
		if w.SpeedVariance < 0 {
			return fmt.Errorf("stage config: waves[%d]: speed_variance must not be negative", i)
		}
	}
	return nil
}

func normalizePacketType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
