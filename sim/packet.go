// Defines the packet kinds that flow through the topology and the behavior
// each kind triggers at the nodes it visits.

package sim

// PacketKind classifies a packet. The kind decides where a packet finalizes
// (Server vs Database) and whether it attacks nodes instead of being served.
type PacketKind uint8

const (
	// KindNormal is ordinary traffic; it must reach the Database.
	KindNormal PacketKind = iota
	// KindSynFlood is high-volume cheap traffic; a Server finalizes it
	// without touching the Database.
	KindSynFlood
	// KindHeavyTask is low-volume expensive traffic; like Normal it must
	// persist, but its complexity weight eats node capacity fast.
	KindHeavyTask
	// KindKiller tries to take the node it reaches down; its own
	// finalization is incidental to that side effect.
	KindKiller
)

// String returns a human-readable name for logging.
func (k PacketKind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindSynFlood:
		return "syn_flood"
	case KindHeavyTask:
		return "heavy_task"
	case KindKiller:
		return "killer"
	default:
		return "unknown"
	}
}

// needsPersistence reports whether a packet of this kind has to reach the
// Database before it counts as processed.
func (k PacketKind) needsPersistence() bool {
	return k == KindNormal || k == KindHeavyTask
}
