// Topology nodes and the per-arrival routing rules. The node table is
// append-only while a stage is being built and frozen once the simulation
// runs, except for position updates used by interactive placement.

package sim

// NodeRole tags what a topology node does with arriving packets.
type NodeRole uint8

const (
	RoleGateway NodeRole = iota
	RoleLoadBalancer
	RoleServer
	RoleDatabase
)

// String returns a human-readable role name for logging.
func (r NodeRole) String() string {
	switch r {
	case RoleGateway:
		return "gateway"
	case RoleLoadBalancer:
		return "lb"
	case RoleServer:
		return "server"
	case RoleDatabase:
		return "db"
	default:
		return "unknown"
	}
}

// Node is one topology node. Identity is the stable slice index; ID is the
// external identifier the control layer uses for placement commands.
type Node struct {
	ID   uint32
	X, Y float32
	Role NodeRole

	// DownUntil is the elapsed-ms timestamp until which this node rejects
	// routing (killer damage). Zero means the node is up.
	DownUntil float64

	// Per-node tallies, for stage debriefs and render-layer overlays.
	Processed uint64
	Dropped   uint64
}

// IsDown reports whether the node rejects routing at elapsed time now.
func (n *Node) IsDown(now float64) bool {
	return now < n.DownUntil
}

// nodeTable holds the stage topology plus the load balancer's round-robin
// cursor. It is owned by the Simulation; packets refer to entries only by
// index.
type nodeTable struct {
	nodes  []Node
	rrNext int
}

// Add appends a node and returns its index.
func (t *nodeTable) Add(id uint32, x, y float32, role NodeRole) int {
	t.nodes = append(t.nodes, Node{ID: id, X: x, Y: y, Role: role})
	return len(t.nodes) - 1
}

// Clear removes every node and resets the round-robin cursor.
func (t *nodeTable) Clear() {
	t.nodes = t.nodes[:0]
	t.rrNext = 0
}

// Len returns the number of nodes.
func (t *nodeTable) Len() int {
	return len(t.nodes)
}

// At returns the node at index idx, or nil if the index is out of range.
// Stage data may reference nodes the player has not placed yet, so a bad
// index is an expected lookup miss, not a fault.
func (t *nodeTable) At(idx int) *Node {
	if idx < 0 || idx >= len(t.nodes) {
		return nil
	}
	return &t.nodes[idx]
}

// ByID returns the index of the node with the given external id, or -1.
func (t *nodeTable) ByID(id uint32) int {
	for i := range t.nodes {
		if t.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// firstUp returns the lowest-index up node of the given role, or -1.
func (t *nodeTable) firstUp(role NodeRole, now float64) int {
	for i := range t.nodes {
		if t.nodes[i].Role == role && !t.nodes[i].IsDown(now) {
			return i
		}
	}
	return -1
}

// pickServer chooses the next Server by round-robin over all Server nodes
// in index order, skipping nodes that are down. The cursor advances past
// the chosen node so consecutive picks rotate; when several candidates are
// equally next the lowest index wins by construction of the scan order.
func (t *nodeTable) pickServer(now float64) int {
	n := len(t.nodes)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		idx := (t.rrNext + i) % n
		node := &t.nodes[idx]
		if node.Role == RoleServer && !node.IsDown(now) {
			t.rrNext = (idx + 1) % n
			return idx
		}
	}
	return -1
}

// routeOutcome is what the node graph decides for a packet that arrived at
// a node this tick.
type routeOutcome uint8

const (
	// routeForward hands the packet a new target node.
	routeForward routeOutcome = iota
	// routeProcessed finalizes the packet as successfully served.
	routeProcessed
	// routeDropped finalizes the packet as lost.
	routeDropped
)

// Route computes the next hop for a packet of the given kind that reached
// node at index at. Killer packets never get here; the tick engine resolves
// their node-down side effect before consulting normal routing.
func (t *nodeTable) Route(at int, kind PacketKind, now float64) (next int, outcome routeOutcome) {
	node := t.At(at)
	if node == nil {
		return -1, routeDropped
	}
	switch node.Role {
	case RoleGateway:
		if lb := t.firstUp(RoleLoadBalancer, now); lb >= 0 {
			return lb, routeForward
		}
		return -1, routeDropped
	case RoleLoadBalancer:
		if srv := t.pickServer(now); srv >= 0 {
			return srv, routeForward
		}
		return -1, routeDropped
	case RoleServer:
		if !kind.needsPersistence() {
			// SynFlood is answered at the server; it never reaches the DB.
			return -1, routeProcessed
		}
		if db := t.firstUp(RoleDatabase, now); db >= 0 {
			return db, routeForward
		}
		return -1, routeDropped
	case RoleDatabase:
		return -1, routeProcessed
	default:
		return -1, routeDropped
	}
}
