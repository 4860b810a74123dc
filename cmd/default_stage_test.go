package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffic-sim/traffic-sim/sim"
)

func TestDefaultStage_Validates(t *testing.T) {
	require.NoError(t, DefaultStage().Validate())
}

func TestDefaultStage_LoadsIntoEngine(t *testing.T) {
	s := sim.New(1000, sim.DefaultConfig())

	require.NoError(t, s.LoadStage(DefaultStage()))

	assert.Equal(t, 5, s.NodeCount())
	assert.Equal(t, 4, s.PendingWaveCount())
}

func TestDefaultStage_RunsToCompletion(t *testing.T) {
	// The built-in stage must drain on its own within a generous horizon.
	s := sim.New(10000, sim.DefaultConfig())
	require.NoError(t, s.LoadStage(DefaultStage()))

	const tickMs = 16.667
	done := false
	for i := 0; i < 20000; i++ {
		s.Tick(tickMs)
		if s.PendingWaveCount() == 0 && s.ActiveCount() == 0 {
			done = true
			break
		}
	}

	require.True(t, done, "stage did not drain")
	snap := s.Stats()
	assert.Equal(t, uint64(943), snap.Spawned, "wave script emits 300+600+40+3 packets")
	assert.Equal(t, snap.Spawned, snap.Processed+snap.Dropped)
}
