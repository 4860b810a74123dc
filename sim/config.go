package sim

// Bounds is the stage's coordinate region. Packets and nodes live inside it;
// it is also the range the boundary adapter quantizes against.
type Bounds struct {
	Width  float32
	Height float32
}

// Config groups the engine tunables (load-balancer behavior, killer
// cooldowns, capacity thresholds). All fields have working defaults from
// DefaultConfig; zero values are not safe.
type Config struct {
	Bounds        Bounds
	ArrivalRadius float32 // distance at which a packet counts as arrived at its target
	BoundsMargin  float32 // how far outside Bounds a packet may stray before it is dropped
	SpawnJitter   float32 // max per-axis offset applied to a packet's emission position

	// CapacityPerTick is the per-role complexity budget a node can absorb in
	// a single tick; arrivals beyond it are dropped that same tick. A zero
	// or missing entry means unlimited (the Gateway only forwards).
	CapacityPerTick map[NodeRole]int

	KillerDownProbability float64 // chance a Killer arrival takes its node down
	KillerDownCooldownMs  float64 // how long a downed node rejects routing

	Seed int64 // master seed for the partitioned RNG
}

// DefaultConfig returns the engine defaults. The capacity ladder makes the
// Database the narrowest hop so HeavyTask pressure concentrates there while
// SynFlood volume hits the Servers first.
func DefaultConfig() Config {
	return Config{
		Bounds:        Bounds{Width: 800, Height: 600},
		ArrivalRadius: 5.0,
		BoundsMargin:  50.0,
		SpawnJitter:   8.0,
		CapacityPerTick: map[NodeRole]int{
			RoleLoadBalancer: 1024,
			RoleServer:       256,
			RoleDatabase:     128,
		},
		KillerDownProbability: 0.35,
		KillerDownCooldownMs:  3000,
		Seed:                  42,
	}
}
