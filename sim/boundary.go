// The boundary adapter is the only place where simulation state crosses the
// process/rendering boundary, and the only place where packet kinds and
// node roles exist as raw integers or strings. Everything it exposes is a
// reused buffer valid strictly until the next Tick; external readers copy
// or consume synchronously.

package sim

import (
	"encoding/binary"
	"strings"
)

// === Enum codecs ===

// Code returns the packet kind's external integer encoding
// (0=Normal, 1=SynFlood, 2=HeavyTask, 3=Killer).
func (k PacketKind) Code() uint32 {
	return uint32(k)
}

// KindFromCode decodes an external packet-kind integer.
func KindFromCode(code uint32) (PacketKind, bool) {
	if code > uint32(KindKiller) {
		return KindNormal, false
	}
	return PacketKind(code), true
}

// ParseKind decodes a stage-config packet type string. Case-insensitive;
// the underscore is optional ("SYN_FLOOD" and "SYNFLOOD" both work).
func ParseKind(s string) (PacketKind, bool) {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "_", "") {
	case "NORMAL":
		return KindNormal, true
	case "SYNFLOOD":
		return KindSynFlood, true
	case "HEAVYTASK":
		return KindHeavyTask, true
	case "KILLER":
		return KindKiller, true
	default:
		return KindNormal, false
	}
}

// Code returns the node role's external integer encoding
// (0=Gateway, 1=LoadBalancer, 2=Server, 3=Database).
func (r NodeRole) Code() uint32 {
	return uint32(r)
}

// RoleFromCode decodes an external node-role integer.
func RoleFromCode(code uint32) (NodeRole, bool) {
	if code > uint32(RoleDatabase) {
		return RoleGateway, false
	}
	return NodeRole(code), true
}

// ParseRole decodes a stage-config node type string.
func ParseRole(s string) (NodeRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gateway":
		return RoleGateway, true
	case "lb":
		return RoleLoadBalancer, true
	case "server":
		return RoleServer, true
	case "db":
		return RoleDatabase, true
	default:
		return RoleGateway, false
	}
}

// === Binary entity-state export ===

// ExportRecordSize is the wire size of one exported packet: u32 id, then
// x and y quantized to u16, all little-endian.
const ExportRecordSize = 8

// ExportRecord is the decoded form of one wire record.
type ExportRecord struct {
	ID   uint32
	X, Y float32
}

func quantize(v, max float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= max {
		return 65535
	}
	return uint16(v * 65535.0 / max)
}

func dequantize(q uint16, max float32) float32 {
	return float32(q) * max / 65535.0
}

// DecodeRecords parses a binary export produced by EncodeActive. Trailing
// partial records are ignored.
func DecodeRecords(data []byte, bounds Bounds) []ExportRecord {
	n := len(data) / ExportRecordSize
	out := make([]ExportRecord, 0, n)
	for i := 0; i < n; i++ {
		rec := data[i*ExportRecordSize:]
		out = append(out, ExportRecord{
			ID: binary.LittleEndian.Uint32(rec[0:4]),
			X:  dequantize(binary.LittleEndian.Uint16(rec[4:6]), bounds.Width),
			Y:  dequantize(binary.LittleEndian.Uint16(rec[6:8]), bounds.Height),
		})
	}
	return out
}

// Boundary exposes simulation state to the rendering and transport layers.
// Its buffers are reused across calls: a returned slice is invalidated by
// the next call of the same method and by the next Tick.
type Boundary struct {
	sim       *Simulation
	wireBuf   []byte
	renderBuf []float32
}

// NewBoundary creates the adapter for sim.
func NewBoundary(sim *Simulation) *Boundary {
	return &Boundary{sim: sim}
}

// EncodeActive serializes every active packet into the 8-byte wire form,
// quantizing positions over the stage bounds. The slot index doubles as
// the packet id: it is stable for the packet's lifetime.
func (b *Boundary) EncodeActive() []byte {
	bounds := b.sim.cfg.Bounds
	store := b.sim.store
	b.wireBuf = b.wireBuf[:0]
	var rec [ExportRecordSize]byte
	store.ForEachActive(func(slot int) {
		binary.LittleEndian.PutUint32(rec[0:4], uint32(slot))
		binary.LittleEndian.PutUint16(rec[4:6], quantize(store.x[slot], bounds.Width))
		binary.LittleEndian.PutUint16(rec[6:8], quantize(store.y[slot], bounds.Height))
		b.wireBuf = append(b.wireBuf, rec[:]...)
	})
	return b.wireBuf
}

// === Render buffer ===

// RenderStride is the number of float32 values per rendered entity:
// x, y, r, g, b, size.
const RenderStride = 6

// Role colors and sizes for the render buffer, matching the frontend
// palette (gateway green, lb blue, server purple, db orange).
var roleColors = [4][3]float32{
	{0.14, 0.53, 0.21},
	{0.12, 0.43, 0.92},
	{0.54, 0.34, 0.90},
	{0.94, 0.53, 0.24},
}

const (
	nodeRenderSize   = 20.0
	packetRenderSize = 3.0
)

// RenderBuffer builds the flat entity buffer consumed by the renderer:
// nodes first (drawn beneath), then every active packet in slot order.
func (b *Boundary) RenderBuffer() []float32 {
	b.renderBuf = b.renderBuf[:0]
	nodes := &b.sim.nodes
	for i := 0; i < nodes.Len(); i++ {
		n := nodes.At(i)
		c := roleColors[n.Role]
		b.renderBuf = append(b.renderBuf, n.X, n.Y, c[0], c[1], c[2], nodeRenderSize)
	}
	store := b.sim.store
	store.ForEachActive(func(slot int) {
		b.renderBuf = append(b.renderBuf,
			store.x[slot], store.y[slot], 1, 1, 1, packetRenderSize)
	})
	return b.renderBuf
}
