// sim/simulator.go
//
// The Simulation owns all engine state and advances it one Tick at a time:
// fire due stage waves, drain the wave scheduler, integrate every active
// packet, then route everything that arrived this tick. Integration always
// finishes before routing starts, so capacity decisions at a node see one
// consistent snapshot of "who arrived this tick" and no packet is ever
// routed twice in a tick.

package sim

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/traffic-sim/traffic-sim/sim/stage"
)

const (
	// defaultComplexity is used for stage waves that do not set one.
	defaultComplexity uint8 = 10
	// minSpeed keeps speed variance from stalling or reversing a packet.
	minSpeed float32 = 1.0
)

// loadedStage keeps the stage definition around so waves can fire on
// schedule and Reset can re-arm them.
type loadedStage struct {
	config  stage.Config
	nodeIdx map[string]int // stage node id -> node table index
	pending []stage.Wave   // waves not yet fired
}

// Simulation is the single owner of the entity store, node table, wave
// scheduler and stats. It is not safe for concurrent use: Tick must not be
// re-entered, and boundary reads must happen between ticks.
type Simulation struct {
	cfg    Config
	store  *Store
	nodes  nodeTable
	sched  Scheduler
	stats  *Stats
	rng    *PartitionedRNG
	loaded *loadedStage

	arrived      []int // slots that reached their target this tick
	arrivedLoad  []int // per-node complexity arrived this tick
	lastTickLoad []int // previous tick's arrivedLoad, for load introspection
}

// New creates a simulation with the given pool size. maxPackets must be
// positive; violating that is programmer misuse, not a runtime condition.
func New(maxPackets int, cfg Config) *Simulation {
	s := &Simulation{
		cfg:   cfg,
		store: NewStore(maxPackets),
		stats: NewStats(),
		rng:   NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
	}
	logrus.Infof("simulation created with %d packet slots (seed=%d)", maxPackets, cfg.Seed)
	return s
}

// === Stage lifecycle ===

// LoadStage validates cfg and installs it: fixed nodes replace the current
// topology and the wave list is armed. Nothing is mutated if validation
// fails, so a malformed stage never half-loads. Loading also clears
// packets, pending tasks and stats, since node indices change.
func (s *Simulation) LoadStage(cfg stage.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.nodes.Clear()
	idx := make(map[string]int, len(cfg.Map.FixedNodes))
	for i, n := range cfg.Map.FixedNodes {
		role, _ := ParseRole(n.Type)
		s.nodes.Add(uint32(i), float32(n.X), float32(n.Y), role)
		idx[n.ID] = i
	}
	s.loaded = &loadedStage{
		config:  cfg,
		nodeIdx: idx,
		pending: append([]stage.Wave(nil), cfg.Waves...),
	}
	s.store.Clear()
	s.sched.Clear()
	s.stats.Reset()
	logrus.Infof("stage %q loaded: %d fixed nodes, %d waves (budget=%d, sla_target=%.2f)",
		cfg.Meta.Title, len(cfg.Map.FixedNodes), len(cfg.Waves), cfg.Meta.Budget, cfg.Meta.SLATarget)
	return nil
}

// StageMeta returns the loaded stage's metadata for the scoring layer.
func (s *Simulation) StageMeta() (stage.Meta, bool) {
	if s.loaded == nil {
		return stage.Meta{}, false
	}
	return s.loaded.config.Meta, true
}

// Reset clears all packets, pending tasks and stats and re-arms the loaded
// stage's waves. Node placements persist (use ClearNodes to remove them),
// but node damage and tallies are wiped.
func (s *Simulation) Reset() {
	s.store.Clear()
	s.sched.Clear()
	s.stats.Reset()
	for i := range s.nodes.nodes {
		s.nodes.nodes[i].DownUntil = 0
		s.nodes.nodes[i].Processed = 0
		s.nodes.nodes[i].Dropped = 0
	}
	s.nodes.rrNext = 0
	if s.loaded != nil {
		s.loaded.pending = append(s.loaded.pending[:0], s.loaded.config.Waves...)
	}
	logrus.Info("simulation reset")
}

// ResetStats zeroes the counters without touching packets or topology.
func (s *Simulation) ResetStats() {
	s.stats.Reset()
}

// === Topology commands ===

// AddNode appends a node and returns its index. The node set grows only
// while a stage is being built; callers must not add nodes mid-run.
func (s *Simulation) AddNode(id uint32, x, y float32, role NodeRole) int {
	idx := s.nodes.Add(id, x, y, role)
	logrus.Debugf("node added: id=%d idx=%d role=%s pos=(%.0f, %.0f)", id, idx, role, x, y)
	return idx
}

// ClearNodes removes every node. Packets still targeting them are dropped
// on their next arrival evaluation (invalid reference policy).
func (s *Simulation) ClearNodes() {
	s.nodes.Clear()
}

// NodeCount returns the number of placed nodes.
func (s *Simulation) NodeCount() int {
	return s.nodes.Len()
}

// NodeAt returns a copy of the node at idx.
func (s *Simulation) NodeAt(idx int) (Node, bool) {
	n := s.nodes.At(idx)
	if n == nil {
		return Node{}, false
	}
	return *n, true
}

// UpdateNodePosition relocates the node with the given external id without
// changing its identity or role. Returns false if no such node exists.
func (s *Simulation) UpdateNodePosition(id uint32, x, y float32) bool {
	idx := s.nodes.ByID(id)
	if idx < 0 {
		logrus.Warnf("node %d not found for position update", id)
		return false
	}
	s.nodes.nodes[idx].X = x
	s.nodes.nodes[idx].Y = y
	return true
}

// NodeLoadRates returns, per node, the complexity that arrived last tick
// divided by the node's capacity budget (0 for unlimited roles). Consumed
// by the render layer's overload overlays.
func (s *Simulation) NodeLoadRates() []float64 {
	rates := make([]float64, s.nodes.Len())
	for i := range rates {
		budget := s.cfg.CapacityPerTick[s.nodes.nodes[i].Role]
		if budget <= 0 || i >= len(s.lastTickLoad) {
			continue
		}
		rates[i] = float64(s.lastTickLoad[i]) / float64(budget)
	}
	return rates
}

// === Spawn commands ===

// SpawnWave queues a position-mode wave: packets emit near (x, y) and fly
// straight toward (targetX, targetY) until they leave the stage.
func (s *Simulation) SpawnWave(x, y, targetX, targetY float32, count int, durationMs float64,
	baseSpeed, speedVariance float32, kind PacketKind, complexity uint8) {
	s.sched.Add(SpawnTask{
		X: x, Y: y,
		TargetNode: NoTarget,
		TargetX:    targetX, TargetY: targetY,
		Count:      count,
		DurationMs: durationMs,
		BaseSpeed:  baseSpeed, SpeedVariance: speedVariance,
		Kind: kind, Complexity: complexity,
		StartTime: s.stats.ElapsedMs,
	})
}

// SpawnWaveToNode queues a node-mode wave: packets emit near (x, y), steer
// to the node at targetNode and are routed onward when they arrive.
func (s *Simulation) SpawnWaveToNode(x, y float32, targetNode int, count int, durationMs float64,
	baseSpeed, speedVariance float32, kind PacketKind, complexity uint8) {
	s.sched.Add(SpawnTask{
		X: x, Y: y,
		TargetNode: int32(targetNode),
		Count:      count,
		DurationMs: durationMs,
		BaseSpeed:  baseSpeed, SpeedVariance: speedVariance,
		Kind: kind, Complexity: complexity,
		StartTime: s.stats.ElapsedMs,
	})
}

// DebugSpawn scatters count Normal packets from (x, y) with random
// headings. Returns how many slots were actually claimed.
func (s *Simulation) DebugSpawn(x, y float32, count int) int {
	rng := s.rng.ForSubsystem(SubsystemEmission)
	now := s.stats.ElapsedMs
	spawned := 0
	for i := 0; i < count; i++ {
		vx := float32(rng.Float64()-0.5) * 240
		vy := float32(rng.Float64()-0.5) * 240
		slot := s.store.Allocate()
		if slot == NoSlot {
			s.stats.Dropped++
			s.stats.DroppedAtSpawn++
			continue
		}
		s.store.x[slot], s.store.y[slot] = x, y
		s.store.vx[slot], s.store.vy[slot] = vx, vy
		s.store.speed[slot] = float32(math.Hypot(float64(vx), float64(vy)))
		s.store.kind[slot] = KindNormal
		s.store.complexity[slot] = defaultComplexity
		s.store.target[slot] = NoTarget
		s.store.wave[slot] = -1
		s.store.spawnedAt[slot] = now
		s.stats.Spawned++
		spawned++
	}
	logrus.Debugf("debug spawn: %d packets at (%.0f, %.0f)", spawned, x, y)
	return spawned
}

// === Wave firing ===

// TriggerWavesUntil fires every loaded stage wave whose declared start time
// is at or before timeMs. Tick calls this automatically; the control layer
// may also call it directly (e.g. to fast-forward during testing). Waves
// whose source node is missing are skipped with a warning, per the
// invalid-reference policy.
func (s *Simulation) TriggerWavesUntil(timeMs float64) {
	if s.loaded == nil {
		return
	}
	remaining := s.loaded.pending[:0]
	for _, w := range s.loaded.pending {
		if float64(w.TimeStartMs) > timeMs {
			remaining = append(remaining, w)
			continue
		}
		s.fireWave(w)
	}
	s.loaded.pending = remaining
}

func (s *Simulation) fireWave(w stage.Wave) {
	src, ok := s.loaded.nodeIdx[w.SourceID]
	if !ok {
		logrus.Warnf("wave source %q not in stage; wave skipped", w.SourceID)
		return
	}
	node := s.nodes.At(src)
	if node == nil {
		logrus.Warnf("wave source %q (node %d) not placed; wave skipped", w.SourceID, src)
		return
	}
	kind, _ := ParseKind(w.PacketType)
	variance := float32(w.SpeedVariance)
	if variance == 0 {
		variance = float32(w.Speed) * 0.1
	}
	complexity := w.Complexity
	if complexity == 0 {
		complexity = defaultComplexity
	}
	// Packets target the source node itself: they emit jittered around it,
	// arrive almost immediately and take the normal routing path from there.
	s.sched.Add(SpawnTask{
		X: node.X, Y: node.Y,
		TargetNode: int32(src),
		Count:      int(w.Count),
		DurationMs: float64(w.DurationMs),
		BaseSpeed:  float32(w.Speed), SpeedVariance: variance,
		Kind: kind, Complexity: complexity,
		StartTime: float64(w.TimeStartMs),
	})
	logrus.Infof("wave fired: %d x %s from %q at t=%dms", w.Count, kind, w.SourceID, w.TimeStartMs)
}

// PendingWaveCount counts stage waves not yet fired plus spawn tasks still
// emitting. Zero means the stage has nothing left to throw at the player.
func (s *Simulation) PendingWaveCount() int {
	n := s.sched.PendingCount()
	if s.loaded != nil {
		n += len(s.loaded.pending)
	}
	return n
}

// === Tick ===

// Tick advances the simulation by deltaMs of simulated time. It is the only
// mutating entry point during a run and completes synchronously.
func (s *Simulation) Tick(deltaMs float64) {
	s.stats.ElapsedMs += deltaMs
	now := s.stats.ElapsedMs
	s.TriggerWavesUntil(now)
	s.sched.AdvanceTo(now, func(task *SpawnTask) {
		s.emitPacket(task, now)
	})
	s.integrate(deltaMs)
	s.routeArrivals(now)
}

// emitPacket allocates and initializes one packet for task. RNG draws
// happen before allocation so an exhausted pool does not desynchronize the
// emission stream of a replay.
func (s *Simulation) emitPacket(task *SpawnTask, now float64) {
	rng := s.rng.ForSubsystem(SubsystemEmission)
	speed := task.BaseSpeed + float32(rng.Float64()*2-1)*task.SpeedVariance
	if speed < minSpeed {
		speed = minSpeed
	}
	ox := task.X + float32(rng.Float64()*2-1)*s.cfg.SpawnJitter
	oy := task.Y + float32(rng.Float64()*2-1)*s.cfg.SpawnJitter

	slot := s.store.Allocate()
	if slot == NoSlot {
		// Pool exhausted: a legitimate overload outcome, tallied as a drop
		// that never spawned.
		s.stats.Dropped++
		s.stats.DroppedAtSpawn++
		return
	}

	s.store.x[slot], s.store.y[slot] = ox, oy
	s.store.speed[slot] = speed
	s.store.kind[slot] = task.Kind
	s.store.complexity[slot] = task.Complexity
	s.store.target[slot] = task.TargetNode
	s.store.wave[slot] = task.ID
	s.store.spawnedAt[slot] = now

	var tx, ty float32
	if task.TargetNode != NoTarget {
		if node := s.nodes.At(int(task.TargetNode)); node != nil {
			tx, ty = node.X, node.Y
		} else {
			// Missing target: head straight out; the arrival evaluation
			// drops it as an invalid reference.
			tx, ty = ox+1, oy
		}
	} else {
		tx, ty = task.TargetX, task.TargetY
	}
	s.aim(slot, ox, oy, tx, ty, speed)
	s.stats.Spawned++
}

// aim points the slot's velocity from (ox, oy) toward (tx, ty) at the
// given speed magnitude.
func (s *Simulation) aim(slot int, ox, oy, tx, ty, speed float32) {
	dx, dy := tx-ox, ty-oy
	dist := float32(math.Hypot(float64(dx), float64(dy)))
	if dist > 0 {
		s.store.vx[slot] = dx / dist * speed
		s.store.vy[slot] = dy / dist * speed
	} else {
		s.store.vx[slot] = speed
		s.store.vy[slot] = 0
	}
}

// integrate moves every active packet by velocity * dt and collects the
// slots that reached their target. No routing happens here.
func (s *Simulation) integrate(deltaMs float64) {
	dt := float32(deltaMs / 1000.0)
	s.arrived = s.arrived[:0]
	s.store.ForEachActive(func(slot int) {
		tgt := s.store.target[slot]
		if tgt != NoTarget {
			node := s.nodes.At(int(tgt))
			if node == nil {
				// Target node no longer exists.
				s.drop(slot)
				return
			}
			dx := node.X - s.store.x[slot]
			dy := node.Y - s.store.y[slot]
			dist := float32(math.Hypot(float64(dx), float64(dy)))
			step := s.store.speed[slot] * dt
			if dist <= s.cfg.ArrivalRadius || step >= dist {
				s.store.x[slot], s.store.y[slot] = node.X, node.Y
				s.arrived = append(s.arrived, slot)
				return
			}
		}
		s.store.x[slot] += s.store.vx[slot] * dt
		s.store.y[slot] += s.store.vy[slot] * dt
		if s.outOfBounds(s.store.x[slot], s.store.y[slot]) {
			// Missed every node and left the stage.
			s.drop(slot)
		}
	})
}

func (s *Simulation) outOfBounds(x, y float32) bool {
	m := s.cfg.BoundsMargin
	return x < -m || x > s.cfg.Bounds.Width+m || y < -m || y > s.cfg.Bounds.Height+m
}

// routeArrivals evaluates every packet collected by integrate, in slot
// order, against node capacity and the routing rules.
func (s *Simulation) routeArrivals(now float64) {
	if len(s.arrivedLoad) < s.nodes.Len() {
		s.arrivedLoad = make([]int, s.nodes.Len())
	}
	for i := range s.arrivedLoad {
		s.arrivedLoad[i] = 0
	}

	for _, slot := range s.arrived {
		nodeIdx := int(s.store.target[slot])
		node := s.nodes.At(nodeIdx)
		if node == nil {
			s.drop(slot)
			continue
		}

		if s.store.kind[slot] == KindKiller {
			// Killer damage bypasses capacity and routing entirely; the
			// packet's own fate is processed regardless of the roll.
			if s.rng.ForSubsystem(SubsystemRouting).Float64() < s.cfg.KillerDownProbability {
				node.DownUntil = now + s.cfg.KillerDownCooldownMs
				logrus.Warnf("node %d (%s) taken down until t=%.0fms", node.ID, node.Role, node.DownUntil)
			}
			node.Processed++
			s.process(slot, now)
			continue
		}

		if budget := s.cfg.CapacityPerTick[node.Role]; budget > 0 {
			s.arrivedLoad[nodeIdx] += int(s.store.complexity[slot])
			if s.arrivedLoad[nodeIdx] > budget {
				node.Dropped++
				s.drop(slot)
				continue
			}
		}

		next, outcome := s.nodes.Route(nodeIdx, s.store.kind[slot], now)
		switch outcome {
		case routeForward:
			nextNode := s.nodes.At(next)
			s.store.target[slot] = int32(next)
			s.aim(slot, s.store.x[slot], s.store.y[slot], nextNode.X, nextNode.Y, s.store.speed[slot])
		case routeProcessed:
			node.Processed++
			s.process(slot, now)
		case routeDropped:
			node.Dropped++
			s.drop(slot)
		}
	}

	s.lastTickLoad = append(s.lastTickLoad[:0], s.arrivedLoad...)
}

func (s *Simulation) process(slot int, now float64) {
	s.stats.recordProcessed(now - s.store.spawnedAt[slot])
	s.store.Deactivate(slot)
}

func (s *Simulation) drop(slot int) {
	s.stats.Dropped++
	s.store.Deactivate(slot)
}

// === Observation ===

// ActiveCount returns the number of active packets.
func (s *Simulation) ActiveCount() int {
	return s.store.ActiveCount()
}

// Stats returns a read-only snapshot of the counters.
func (s *Simulation) Stats() Snapshot {
	return s.stats.Snapshot()
}

// ElapsedMs returns the simulated time advanced so far.
func (s *Simulation) ElapsedMs() float64 {
	return s.stats.ElapsedMs
}

// Report prints the end-of-run metrics (see Stats.Print).
func (s *Simulation) Report(wallTime time.Duration) {
	target := 0.0
	if meta, ok := s.StageMeta(); ok {
		target = meta.SLATarget
	}
	s.stats.Print(target, wallTime)
}
