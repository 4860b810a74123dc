// The wave scheduler turns declarative wave definitions into timed packet
// emissions. It owns only the pending task set and the arithmetic of "how
// many packets should exist by now"; allocation and randomization happen in
// the Simulation's emit callback so all stats stay in one place.

package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// SpawnTask is one wave being emitted. Progress is monotonic and never
// exceeds Count; once they are equal the task is retired from the pending
// set.
type SpawnTask struct {
	ID int32

	// Origin of emitted packets (jitter is applied per packet).
	X, Y float32

	// TargetNode is the node index packets steer toward, or NoTarget for
	// position mode, in which case TargetX/TargetY fix the initial heading.
	TargetNode       int32
	TargetX, TargetY float32

	Count         int
	Progress      int
	DurationMs    float64
	BaseSpeed     float32
	SpeedVariance float32
	Kind          PacketKind
	Complexity    uint8
	StartTime     float64
}

// targetEmitted returns how many packets this task should have emitted by
// elapsed time now: linear in elapsed/duration, the full count immediately
// when the duration is zero.
func (t *SpawnTask) targetEmitted(now float64) int {
	if t.DurationMs <= 0 {
		return t.Count
	}
	progress := (now - t.StartTime) / t.DurationMs
	if progress >= 1 {
		return t.Count
	}
	if progress < 0 {
		return 0
	}
	return int(math.Floor(float64(t.Count) * progress))
}

// Scheduler holds the pending spawn tasks of the running stage.
type Scheduler struct {
	pending []*SpawnTask
	nextID  int32
}

// Add registers a task, assigning it an id for packet attribution.
func (sc *Scheduler) Add(task SpawnTask) *SpawnTask {
	task.ID = sc.nextID
	sc.nextID++
	t := &task
	sc.pending = append(sc.pending, t)
	logrus.Debugf("wave %d queued: %d x %s toward node %d over %.0fms",
		t.ID, t.Count, t.Kind, t.TargetNode, t.DurationMs)
	return t
}

// PendingCount returns the number of tasks still emitting.
func (sc *Scheduler) PendingCount() int {
	return len(sc.pending)
}

// Clear drops all pending tasks.
func (sc *Scheduler) Clear() {
	sc.pending = sc.pending[:0]
	sc.nextID = 0
}

// AdvanceTo emits every packet due by elapsed time now, calling emit once
// per due packet. Emission is a pure function of the time sequence; all
// randomness lives in the emit callback's subsystem RNG, so replays with
// the same seed and tick cadence reproduce exactly. Tasks that finish are
// retired in place.
func (sc *Scheduler) AdvanceTo(now float64, emit func(task *SpawnTask)) {
	remaining := sc.pending[:0]
	for _, task := range sc.pending {
		if task.StartTime > now {
			remaining = append(remaining, task)
			continue
		}
		due := task.targetEmitted(now) - task.Progress
		for i := 0; i < due; i++ {
			emit(task)
		}
		task.Progress += due
		if task.Progress >= task.Count {
			logrus.Debugf("wave %d retired after %d emissions", task.ID, task.Progress)
			continue
		}
		remaining = append(remaining, task)
	}
	// Nil out the freed tail so retired tasks are collectable.
	for i := len(remaining); i < len(sc.pending); i++ {
		sc.pending[i] = nil
	}
	sc.pending = remaining
}
