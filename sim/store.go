// Implements the fixed-capacity packet pool. The tick loop touches position
// and velocity for every active packet every tick while kind and complexity
// are read only on arrival, so fields live in independent parallel slices
// (structure-of-arrays) instead of one slice of packet records: the hot loop
// then streams through exactly the arrays it needs.

package sim

// NoSlot is returned by Allocate when the pool is exhausted.
const NoSlot = -1

// NoTarget marks a packet that has no target node (position-mode packets
// steer by raw velocity until they leave the stage).
const NoTarget int32 = -1

// Store is the packet pool. A slot's fields other than the active flag are
// unspecified while the slot is inactive; readers must check the flag first.
type Store struct {
	capacity int

	active     []bool
	x, y       []float32
	vx, vy     []float32
	speed      []float32 // velocity magnitude, kept for rerouting at nodes
	kind       []PacketKind
	complexity []uint8
	target     []int32 // index into the node table, or NoTarget
	wave       []int32 // emitting task id, for attribution
	spawnedAt  []float64

	// cursor is where the next Allocate starts scanning. It trails the most
	// recent allocation, so consecutive allocations are O(1) amortized
	// instead of rescanning the occupied prefix of the pool every call.
	cursor      int
	activeCount int
}

// NewStore creates a pool with the given maximum number of packet slots.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		panic("sim: store capacity must be positive")
	}
	return &Store{
		capacity:   capacity,
		active:     make([]bool, capacity),
		x:          make([]float32, capacity),
		y:          make([]float32, capacity),
		vx:         make([]float32, capacity),
		vy:         make([]float32, capacity),
		speed:      make([]float32, capacity),
		kind:       make([]PacketKind, capacity),
		complexity: make([]uint8, capacity),
		target:     make([]int32, capacity),
		wave:       make([]int32, capacity),
		spawnedAt:  make([]float64, capacity),
	}
}

// Capacity returns the maximum number of concurrently active packets.
func (s *Store) Capacity() int {
	return s.capacity
}

// ActiveCount returns the number of currently active packets.
func (s *Store) ActiveCount() int {
	return s.activeCount
}

// Allocate claims a free slot and marks it active, returning its index, or
// NoSlot when every slot is in use. The caller fills the slot's fields; the
// store does not clear stale values.
func (s *Store) Allocate() int {
	if s.activeCount == s.capacity {
		return NoSlot
	}
	for i := 0; i < s.capacity; i++ {
		slot := (s.cursor + i) % s.capacity
		if !s.active[slot] {
			s.active[slot] = true
			s.activeCount++
			s.cursor = (slot + 1) % s.capacity
			return slot
		}
	}
	return NoSlot
}

// Deactivate frees a slot. Only the active flag is cleared; all other
// fields keep their stale values.
func (s *Store) Deactivate(slot int) {
	if !s.active[slot] {
		return
	}
	s.active[slot] = false
	s.activeCount--
}

// ForEachActive calls fn for every active slot in ascending slot order.
// The order is stable within a tick: the tick loop relies on never seeing
// the same slot twice in one pass even as slots are freed behind it.
func (s *Store) ForEachActive(fn func(slot int)) {
	for i := 0; i < s.capacity; i++ {
		if s.active[i] {
			fn(i)
		}
	}
}

// Clear deactivates every slot and rewinds the scan cursor.
func (s *Store) Clear() {
	for i := range s.active {
		s.active[i] = false
	}
	s.activeCount = 0
	s.cursor = 0
}
