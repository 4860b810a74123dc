package stage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stageJSON = `{
  "meta": {"title": "Baseline", "description": "smoke", "budget": 500, "sla_target": 0.95},
  "map": {"fixed_nodes": [
    {"id": "gw", "type": "gateway", "x": 100, "y": 300},
    {"id": "lb", "type": "lb", "x": 300, "y": 300},
    {"id": "s1", "type": "server", "x": 500, "y": 300},
    {"id": "db", "type": "db", "x": 700, "y": 300}
  ]},
  "waves": [
    {"time_start_ms": 0, "source_id": "gw", "count": 300, "duration_ms": 5000, "packet_type": "NORMAL", "speed": 180},
    {"time_start_ms": 6000, "source_id": "gw", "count": 600, "duration_ms": 3000, "packet_type": "SYN_FLOOD", "speed": 220, "complexity": 4}
  ]
}`

const stageYAML = `
meta:
  title: Baseline
  sla_target: 0.95
map:
  fixed_nodes:
    - {id: gw, type: gateway, x: 100, y: 300}
waves:
  - {time_start_ms: 0, source_id: gw, count: 10, duration_ms: 1000, packet_type: KILLER, speed: 200}
`

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(stageJSON))
	require.NoError(t, err)

	assert.Equal(t, "Baseline", cfg.Meta.Title)
	assert.Equal(t, uint32(500), cfg.Meta.Budget)
	assert.Equal(t, 0.95, cfg.Meta.SLATarget)
	require.Len(t, cfg.Map.FixedNodes, 4)
	assert.Equal(t, "gateway", cfg.Map.FixedNodes[0].Type)
	require.Len(t, cfg.Waves, 2)
	assert.Equal(t, uint32(6000), cfg.Waves[1].TimeStartMs)
	assert.Equal(t, uint8(4), cfg.Waves[1].Complexity)
	// omitted optionals stay zero so the engine picks defaults
	assert.Zero(t, cfg.Waves[0].SpeedVariance)
	assert.Zero(t, cfg.Waves[0].Complexity)
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"meta": `))
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML([]byte(stageYAML))
	require.NoError(t, err)

	assert.Equal(t, "Baseline", cfg.Meta.Title)
	require.Len(t, cfg.Waves, 1)
	assert.Equal(t, "KILLER", cfg.Waves[0].PacketType)
}

func TestLoad_PicksDecoderByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "stage.json")
	yamlPath := filepath.Join(dir, "stage.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(stageJSON), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(stageYAML), 0o644))

	fromJSON, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Len(t, fromJSON.Map.FixedNodes, 4)

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, fromYAML.Map.FixedNodes, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		Meta: Meta{Title: "t", SLATarget: 0.9},
		Map: Map{FixedNodes: []FixedNode{
			{ID: "gw", Type: "gateway", X: 1, Y: 1},
			{ID: "db", Type: "db", X: 2, Y: 2},
		}},
		Waves: []Wave{
			{SourceID: "gw", Count: 5, DurationMs: 100, PacketType: "NORMAL", Speed: 100},
		},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing title", func(c *Config) { c.Meta.Title = "" }, "meta.title"},
		{"sla out of range", func(c *Config) { c.Meta.SLATarget = 1.5 }, "sla_target"},
		{"negative sla", func(c *Config) { c.Meta.SLATarget = -0.1 }, "sla_target"},
		{"no nodes", func(c *Config) { c.Map.FixedNodes = nil }, "fixed_nodes"},
		{"empty node id", func(c *Config) { c.Map.FixedNodes[0].ID = "" }, "id is required"},
		{"duplicate node id", func(c *Config) { c.Map.FixedNodes[1].ID = "gw" }, "duplicate id"},
		{"unknown node type", func(c *Config) { c.Map.FixedNodes[0].Type = "router" }, "unknown type"},
		{"zero count", func(c *Config) { c.Waves[0].Count = 0 }, "count"},
		{"dangling source", func(c *Config) { c.Waves[0].SourceID = "ghost" }, "source_id"},
		{"unknown packet type", func(c *Config) { c.Waves[0].PacketType = "UDP" }, "packet_type"},
		{"zero speed", func(c *Config) { c.Waves[0].Speed = 0 }, "speed"},
		{"negative variance", func(c *Config) { c.Waves[0].SpeedVariance = -1 }, "speed_variance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestValidate_CaseInsensitiveTypes(t *testing.T) {
	cfg := validConfig()
	cfg.Map.FixedNodes[0].Type = "GATEWAY"
	cfg.Waves[0].PacketType = "syn_flood"

	assert.NoError(t, cfg.Validate())
}
