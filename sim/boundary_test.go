package sim

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestQuantizeRoundTrip(t *testing.T) {
	// GIVEN positions across the stage, including the clamping extremes
	bounds := DefaultConfig().Bounds
	values := []float32{0, 0.5, 123.4, 400, 799.9, 800, 900, -5}

	for _, v := range values {
		q := quantize(v, bounds.Width)
		back := dequantize(q, bounds.Width)

		// clamped inputs land on the edge, everything else within one step
		want := v
		if v < 0 {
			want = 0
		}
		if v > bounds.Width {
			want = bounds.Width
		}
		step := bounds.Width / 65535.0
		if diff := float32(math.Abs(float64(back - want))); diff > step {
			t.Errorf("round trip of %v: got %v (off by %v, step %v)", v, back, diff, step)
		}
	}
}

func TestEncodeActive_WireLayout(t *testing.T) {
	// GIVEN one packet at a known position
	s := New(4, DefaultConfig())
	got := s.DebugSpawn(400, 300, 1)
	if got != 1 {
		t.Fatalf("setup: spawned %d, want 1", got)
	}

	// WHEN encoded
	data := NewBoundary(s).EncodeActive()

	// THEN the frame is one 8-byte little-endian record
	if len(data) != ExportRecordSize {
		t.Fatalf("frame length: got %d, want %d", len(data), ExportRecordSize)
	}
	if id := binary.LittleEndian.Uint32(data[0:4]); id != 0 {
		t.Errorf("id: got %d, want 0 (slot index)", id)
	}
	bounds := s.cfg.Bounds
	x := dequantize(binary.LittleEndian.Uint16(data[4:6]), bounds.Width)
	y := dequantize(binary.LittleEndian.Uint16(data[6:8]), bounds.Height)
	if math.Abs(float64(x-400)) > 0.1 || math.Abs(float64(y-300)) > 0.1 {
		t.Errorf("position: got (%v, %v), want (400, 300)", x, y)
	}
}

func TestDecodeRecords(t *testing.T) {
	// GIVEN a frame of several packets
	s := New(16, DefaultConfig())
	if got := s.DebugSpawn(200, 150, 5); got != 5 {
		t.Fatalf("setup: spawned %d, want 5", got)
	}
	b := NewBoundary(s)
	data := b.EncodeActive()

	recs := DecodeRecords(data, s.cfg.Bounds)

	if len(recs) != 5 {
		t.Fatalf("decoded records: got %d, want 5", len(recs))
	}
	for i, r := range recs {
		if r.ID != uint32(i) {
			t.Errorf("record %d: id %d, want %d", i, r.ID, i)
		}
		if math.Abs(float64(r.X-200)) > 0.1 || math.Abs(float64(r.Y-150)) > 0.1 {
			t.Errorf("record %d: position (%v, %v), want (200, 150)", i, r.X, r.Y)
		}
	}

	// Trailing partial records are ignored.
	if got := DecodeRecords(data[:len(data)-3], s.cfg.Bounds); len(got) != 4 {
		t.Errorf("truncated frame: got %d records, want 4", len(got))
	}
}

func TestRenderBuffer_NodesFirstThenPackets(t *testing.T) {
	// GIVEN two nodes and three packets
	s := New(8, DefaultConfig())
	s.AddNode(0, 100, 300, RoleGateway)
	s.AddNode(1, 700, 300, RoleDatabase)
	if got := s.DebugSpawn(400, 300, 3); got != 3 {
		t.Fatalf("setup: spawned %d, want 3", got)
	}

	buf := NewBoundary(s).RenderBuffer()

	if len(buf) != 5*RenderStride {
		t.Fatalf("buffer length: got %d floats, want %d", len(buf), 5*RenderStride)
	}
	// node entries carry the node size, packet entries the packet size
	if buf[0] != 100 || buf[1] != 300 || buf[5] != nodeRenderSize {
		t.Errorf("first node entry: %v", buf[:RenderStride])
	}
	pkt := buf[2*RenderStride : 3*RenderStride]
	if pkt[5] != packetRenderSize {
		t.Errorf("first packet entry: %v", pkt)
	}
	// packets render white
	if pkt[2] != 1 || pkt[3] != 1 || pkt[4] != 1 {
		t.Errorf("packet color: got (%v, %v, %v), want (1, 1, 1)", pkt[2], pkt[3], pkt[4])
	}
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want PacketKind
		ok   bool
	}{
		{"NORMAL", KindNormal, true},
		{"normal", KindNormal, true},
		{"SYN_FLOOD", KindSynFlood, true},
		{"SYNFLOOD", KindSynFlood, true},
		{"Heavy_Task", KindHeavyTask, true},
		{"KILLER", KindKiller, true},
		{" killer ", KindKiller, true},
		{"UDP_FLOOD", KindNormal, false},
		{"", KindNormal, false},
	}
	for _, tc := range cases {
		got, ok := ParseKind(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseKind(%q): got (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want NodeRole
		ok   bool
	}{
		{"gateway", RoleGateway, true},
		{"lb", RoleLoadBalancer, true},
		{"SERVER", RoleServer, true},
		{"db", RoleDatabase, true},
		{"router", RoleGateway, false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseRole(%q): got (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestKindRoleCodes(t *testing.T) {
	for code := uint32(0); code < 4; code++ {
		k, ok := KindFromCode(code)
		if !ok || k.Code() != code {
			t.Errorf("kind code %d does not round-trip", code)
		}
		r, ok := RoleFromCode(code)
		if !ok || r.Code() != code {
			t.Errorf("role code %d does not round-trip", code)
		}
	}
	if _, ok := KindFromCode(4); ok {
		t.Error("KindFromCode accepted 4")
	}
	if _, ok := RoleFromCode(4); ok {
		t.Error("RoleFromCode accepted 4")
	}
}
