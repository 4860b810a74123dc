package sim

import "testing"

func TestStats_InFlight(t *testing.T) {
	// GIVEN 10 spawned, 4 processed, 3 dropped of which 1 never claimed a slot
	s := Stats{Spawned: 10, Processed: 4, Dropped: 3, DroppedAtSpawn: 1}

	// THEN in-flight counts only packets that actually occupy slots
	if got := s.InFlight(); got != 4 {
		t.Errorf("InFlight: got %d, want 4", got)
	}
}

func TestStats_SLARate(t *testing.T) {
	cases := []struct {
		name      string
		spawned   uint64
		processed uint64
		want      float64
	}{
		{"nothing spawned", 0, 0, 0},
		{"all processed", 10, 10, 1.0},
		{"partial", 10, 9, 0.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Stats{Spawned: tc.spawned, Processed: tc.processed}
			if got := s.SLARate(); got != tc.want {
				t.Errorf("SLARate: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStats_Reset(t *testing.T) {
	// GIVEN counters and recorded latencies
	s := Stats{Spawned: 5, Dropped: 2, ElapsedMs: 100}
	s.recordProcessed(42)
	s.recordProcessed(17)

	// WHEN reset
	s.Reset()

	// THEN everything is zeroed, including the latency record
	if s.Spawned != 0 || s.Processed != 0 || s.Dropped != 0 || s.ElapsedMs != 0 {
		t.Errorf("counters not zeroed: %+v", s)
	}
	if len(s.latencies) != 0 {
		t.Errorf("latencies not cleared: %d entries", len(s.latencies))
	}
}

func TestStats_SnapshotMirrorsCounters(t *testing.T) {
	s := Stats{Spawned: 8, Processed: 5, Dropped: 2, DroppedAtSpawn: 1, ElapsedMs: 250}

	snap := s.Snapshot()

	if snap.Spawned != 8 || snap.Processed != 5 || snap.Dropped != 2 || snap.DroppedAtSpawn != 1 {
		t.Errorf("snapshot counters: %+v", snap)
	}
	if snap.InFlight != s.InFlight() {
		t.Errorf("snapshot InFlight: got %d, want %d", snap.InFlight, s.InFlight())
	}
	if snap.SLARate != s.SLARate() {
		t.Errorf("snapshot SLARate: got %v, want %v", snap.SLARate, s.SLARate())
	}
	if snap.ElapsedMs != 250 {
		t.Errorf("snapshot ElapsedMs: got %v, want 250", snap.ElapsedMs)
	}
}
