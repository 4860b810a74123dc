package cmd

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/traffic-sim/traffic-sim/sim"
)

var serveAddr string // serve-only flag

// upgrader promotes HTTP requests on /ws to WebSocket connections.
// CheckOrigin accepts everything: the demo channel is meant for a local
// frontend during development, not for exposure on a public interface.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveCmd runs the WebSocket demo channel: each client gets its own
// simulation, receives one binary entity-state frame per tick, and drives
// the simulation with JSON commands.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation over a WebSocket demo channel",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		http.HandleFunc("/ws", handleWebSocket)
		logrus.Infof("WebSocket server starting on %s (ws://localhost%s/ws)", serveAddr, serveAddr)
		if err := http.ListenAndServe(serveAddr, nil); err != nil {
			logrus.Fatalf("ListenAndServe: %v", err)
		}
	},
}

// wsCommand is one JSON control message from the client. Cmd selects the
// operation; the remaining fields are read per operation. Packet kinds and
// node roles arrive in their external integer encodings.
type wsCommand struct {
	Cmd string `json:"cmd"`

	ID       uint32  `json:"id,omitempty"`
	X        float32 `json:"x,omitempty"`
	Y        float32 `json:"y,omitempty"`
	NodeType uint32  `json:"node_type,omitempty"`

	TargetX       float32 `json:"target_x,omitempty"`
	TargetY       float32 `json:"target_y,omitempty"`
	TargetNode    int     `json:"target_node,omitempty"`
	Count         int     `json:"count,omitempty"`
	DurationMs    float64 `json:"duration_ms,omitempty"`
	Speed         float32 `json:"speed,omitempty"`
	SpeedVariance float32 `json:"speed_variance,omitempty"`
	PacketType    uint32  `json:"packet_type,omitempty"`
	Complexity    uint8   `json:"complexity,omitempty"`
}

// statsFrame is the JSON stats message sent alongside binary frames.
type statsFrame struct {
	Type         string  `json:"type"`
	Spawned      uint64  `json:"spawned"`
	Processed    uint64  `json:"processed"`
	Dropped      uint64  `json:"dropped"`
	InFlight     uint64  `json:"in_flight"`
	SLARate      float64 `json:"sla_rate"`
	ElapsedMs    float64 `json:"elapsed_ms"`
	PendingWaves int     `json:"pending_waves"`
}

// handleWebSocket owns the per-client simulation. All mutation happens on
// this goroutine: the read loop only forwards parsed commands over a
// channel, preserving the engine's single-writer discipline.
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	logrus.Infof("client connected: %s", conn.RemoteAddr())

	engineCfg := sim.DefaultConfig()
	engineCfg.Seed = seed
	s := sim.New(maxPackets, engineCfg)
	stageCfg := loadStageConfig()
	if err := s.LoadStage(stageCfg); err != nil {
		logrus.Warnf("stage load failed for %s: %v", conn.RemoteAddr(), err)
		return
	}
	boundary := sim.NewBoundary(s)

	if err := conn.WriteJSON(stageCfg.Meta); err != nil {
		logrus.Warnf("write error: %v", err)
		return
	}

	cmds := make(chan wsCommand, 32)
	go func() {
		defer close(cmds)
		for {
			var c wsCommand
			if err := conn.ReadJSON(&c); err != nil {
				logrus.Debugf("read loop ended for %s: %v", conn.RemoteAddr(), err)
				return
			}
			cmds <- c
		}
	}()

	ticker := time.NewTicker(time.Duration(tickMs * float64(time.Millisecond)))
	defer ticker.Stop()

	statsEvery := 0
	for {
		select {
		case c, ok := <-cmds:
			if !ok {
				logrus.Infof("client disconnected: %s", conn.RemoteAddr())
				return
			}
			applyCommand(s, c)
		case <-ticker.C:
			s.Tick(tickMs)
			if err := conn.WriteMessage(websocket.BinaryMessage, boundary.EncodeActive()); err != nil {
				logrus.Debugf("write error: %v", err)
				return
			}
			// A stats frame every ~500ms is plenty for the HUD.
			statsEvery++
			if statsEvery*int(tickMs) >= 500 {
				statsEvery = 0
				snap := s.Stats()
				frame := statsFrame{
					Type:         "stats",
					Spawned:      snap.Spawned,
					Processed:    snap.Processed,
					Dropped:      snap.Dropped,
					InFlight:     snap.InFlight,
					SLARate:      snap.SLARate,
					ElapsedMs:    snap.ElapsedMs,
					PendingWaves: s.PendingWaveCount(),
				}
				if err := conn.WriteJSON(frame); err != nil {
					logrus.Debugf("write error: %v", err)
					return
				}
			}
		}
	}
}

// applyCommand executes one client command against the simulation.
func applyCommand(s *sim.Simulation, c wsCommand) {
	if c.Complexity == 0 {
		c.Complexity = 10
	}
	switch c.Cmd {
	case "spawn_wave":
		kind, _ := sim.KindFromCode(c.PacketType)
		s.SpawnWave(c.X, c.Y, c.TargetX, c.TargetY, c.Count, c.DurationMs,
			c.Speed, c.SpeedVariance, kind, c.Complexity)
	case "spawn_wave_to_node":
		kind, _ := sim.KindFromCode(c.PacketType)
		s.SpawnWaveToNode(c.X, c.Y, c.TargetNode, c.Count, c.DurationMs,
			c.Speed, c.SpeedVariance, kind, c.Complexity)
	case "add_node":
		role, ok := sim.RoleFromCode(c.NodeType)
		if !ok {
			logrus.Warnf("add_node: unknown node type %d", c.NodeType)
			return
		}
		s.AddNode(c.ID, c.X, c.Y, role)
	case "clear_nodes":
		s.ClearNodes()
	case "move_node":
		s.UpdateNodePosition(c.ID, c.X, c.Y)
	case "debug_spawn":
		s.DebugSpawn(c.X, c.Y, c.Count)
	case "reset":
		s.Reset()
	default:
		logrus.Warnf("unknown command %q", c.Cmd)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address for the WebSocket server")
}
