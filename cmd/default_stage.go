package cmd

import "github.com/traffic-sim/traffic-sim/sim/stage"

// DefaultStage is the built-in demo stage used when --stage is not given:
// one gateway feeding a load balancer, two servers, one database, and a
// wave script that escalates from normal traffic through a SYN flood and
// heavy tasks to a killer packet.
func DefaultStage() stage.Config {
	return stage.Config{
		Meta: stage.Meta{
			Title:       "Baseline Assault",
			Description: "Normal traffic, then a SYN flood, heavy tasks, and a killer packet.",
			Budget:      500,
			SLATarget:   0.95,
		},
		Map: stage.Map{
			FixedNodes: []stage.FixedNode{
				{ID: "gateway", Type: "gateway", X: 100, Y: 300},
				{ID: "lb-1", Type: "lb", X: 300, Y: 300},
				{ID: "srv-1", Type: "server", X: 500, Y: 200},
				{ID: "srv-2", Type: "server", X: 500, Y: 400},
				{ID: "db-1", Type: "db", X: 700, Y: 300},
			},
		},
		Waves: []stage.Wave{
			{TimeStartMs: 0, SourceID: "gateway", Count: 300, DurationMs: 5000, PacketType: "NORMAL", Speed: 180},
			{TimeStartMs: 6000, SourceID: "gateway", Count: 600, DurationMs: 3000, PacketType: "SYN_FLOOD", Speed: 220, Complexity: 4},
			{TimeStartMs: 10000, SourceID: "gateway", Count: 40, DurationMs: 4000, PacketType: "HEAVY_TASK", Speed: 150, Complexity: 80},
			{TimeStartMs: 14000, SourceID: "gateway", Count: 3, DurationMs: 1000, PacketType: "KILLER", Speed: 200},
		},
	}
}
