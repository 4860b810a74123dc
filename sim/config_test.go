package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, float32(800), cfg.Bounds.Width)
	assert.Equal(t, float32(600), cfg.Bounds.Height)
	assert.Greater(t, cfg.ArrivalRadius, float32(0))
	assert.Greater(t, cfg.BoundsMargin, float32(0))

	// the gateway is deliberately unmetered; every other role has a budget
	_, hasGateway := cfg.CapacityPerTick[RoleGateway]
	assert.False(t, hasGateway)
	assert.Greater(t, cfg.CapacityPerTick[RoleLoadBalancer], cfg.CapacityPerTick[RoleServer])
	assert.Greater(t, cfg.CapacityPerTick[RoleServer], cfg.CapacityPerTick[RoleDatabase])

	assert.GreaterOrEqual(t, cfg.KillerDownProbability, 0.0)
	assert.LessOrEqual(t, cfg.KillerDownProbability, 1.0)
	assert.Greater(t, cfg.KillerDownCooldownMs, 0.0)
}

func TestDefaultConfig_IndependentCopies(t *testing.T) {
	// The capacity map must not be shared between calls.
	a := DefaultConfig()
	b := DefaultConfig()

	a.CapacityPerTick[RoleServer] = 1

	assert.NotEqual(t, 1, b.CapacityPerTick[RoleServer])
}
