// Tracks simulation-wide counters (spawned / processed / dropped) and
// per-packet transit latencies for the end-of-run report.

package sim

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Stats aggregates the running counters of a simulation. Counters are
// monotonically non-decreasing between resets and are mutated only by the
// tick engine and the wave emission path; everything else reads snapshots.
type Stats struct {
	Spawned   uint64
	Processed uint64
	Dropped   uint64
	ElapsedMs float64

	// DroppedAtSpawn is the subset of Dropped that never claimed a slot
	// (pool exhaustion). It makes the conservation identity checkable:
	// Spawned == Processed + (Dropped - DroppedAtSpawn) + active.
	DroppedAtSpawn uint64

	// transit times (ms) of processed packets, for the final report
	latencies []float64
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{}
}

// InFlight derives the number of packets currently active. Drops that never
// claimed a slot are excluded since they were never spawned.
func (s *Stats) InFlight() uint64 {
	return s.Spawned - s.Processed - (s.Dropped - s.DroppedAtSpawn)
}

// SLARate is processed/spawned, the stage's pass/fail metric. Defined as 0
// when nothing has spawned yet.
func (s *Stats) SLARate() float64 {
	if s.Spawned == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Spawned)
}

// Reset zeroes every counter. Invoked only at stage (re)start.
func (s *Stats) Reset() {
	*s = Stats{latencies: s.latencies[:0]}
}

func (s *Stats) recordProcessed(transitMs float64) {
	s.Processed++
	s.latencies = append(s.latencies, transitMs)
}

// Snapshot is a read-only view of the counters at one observation point.
type Snapshot struct {
	Spawned        uint64
	Processed      uint64
	Dropped        uint64
	DroppedAtSpawn uint64
	InFlight       uint64
	ElapsedMs      float64
	SLARate        float64
}

// Snapshot captures the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Spawned:        s.Spawned,
		Processed:      s.Processed,
		Dropped:        s.Dropped,
		DroppedAtSpawn: s.DroppedAtSpawn,
		InFlight:       s.InFlight(),
		ElapsedMs:      s.ElapsedMs,
		SLARate:        s.SLARate(),
	}
}

// Print displays aggregated metrics at the end of the simulation, including
// the transit latency distribution of processed packets.
func (s *Stats) Print(slaTarget float64, wallTime time.Duration) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Simulated time       : %.0f ms\n", s.ElapsedMs)
	fmt.Printf("Packets spawned      : %d\n", s.Spawned)
	fmt.Printf("Packets processed    : %d\n", s.Processed)
	fmt.Printf("Packets dropped      : %d\n", s.Dropped)
	fmt.Printf("Packets in flight    : %d\n", s.InFlight())
	fmt.Printf("SLA rate             : %.4f (target %.4f)\n", s.SLARate(), slaTarget)
	if len(s.latencies) > 0 {
		sorted := make([]float64, len(s.latencies))
		copy(sorted, s.latencies)
		sort.Float64s(sorted)
		fmt.Printf("Transit latency mean : %.2f ms\n", stat.Mean(sorted, nil))
		fmt.Printf("Transit latency p50  : %.2f ms\n", stat.Quantile(0.50, stat.Empirical, sorted, nil))
		fmt.Printf("Transit latency p90  : %.2f ms\n", stat.Quantile(0.90, stat.Empirical, sorted, nil))
		fmt.Printf("Transit latency p99  : %.2f ms\n", stat.Quantile(0.99, stat.Empirical, sorted, nil))
	}
	fmt.Printf("Wall clock           : %v\n", wallTime)
}
