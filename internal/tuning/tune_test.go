package tuning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestTune tests a complete tuning run
func TestTune(t *testing.T) {
	// Arrange
	m := exampleModel(t)
	p := m.Params

	// Act
	r, err := Tune(m, exampleConfig(), zaptest.NewLogger(t))

	// Assert
	require.NoError(t, err)
	require.Equal(t, 44, r.Trajectory.Len())
	assert.Equal(t, 27, r.PitchGains.Len())
	assert.Equal(t, 17, r.TorqueGains.Len())
	assert.Len(t, r.Linear.A, 44)
	assert.Len(t, r.PeakShaving.PitchMin, 44)

	for i := range r.PitchGains.Kp {
		assert.False(t, math.IsNaN(r.PitchGains.Kp[i]) || math.IsInf(r.PitchGains.Kp[i], 0))
		assert.Negative(t, r.PitchGains.Ki[i], "pitch input gain is negative")
	}
	for i := range r.TorqueGains.Ki {
		assert.Negative(t, r.TorqueGains.Ki[i], "torque input gain is negative")
	}

	assert.Equal(t, 8.0, r.TSROpt)
	assert.Equal(t, 0.48, r.CpMax)
	wantRgn2K := 0.5 * p.Rho * p.RotorArea() * math.Pow(p.RotorRadius, 5) * 0.48 / (math.Pow(8, 3) * p.Ng)
	assert.InDelta(t, wantRgn2K, r.VSRgn2K, 1e-9)
	assert.InDelta(t, math.Min(8*p.VRated/p.RotorRadius, p.RatedRotorSpeed)*p.Ng, r.VSRefSpd, 1e-9)
	assert.InDelta(t, 8*p.VMin/p.RotorRadius*p.Ng, r.VSMinSpd, 1e-9)
	assert.Empty(t, r.Diagnostics.Warnings)
}

// TestTune_PeakShaving tests that shaved points meet the thrust ceiling
func TestTune_PeakShaving(t *testing.T) {
	// Arrange
	m := exampleModel(t)

	// Act
	r, err := Tune(m, exampleConfig(), nil)

	// Assert
	require.NoError(t, err)
	ps := r.PeakShaving
	require.Positive(t, ps.NumShaved())
	assert.Equal(t, ps.NumShaved(), r.Diagnostics.Shaved)
	for i := range ps.V {
		if ps.Shaved[i] {
			assert.InEpsilon(t, ps.TMax, ps.TShaved[i], 1e-9, "v=%.1f", ps.V[i])
			assert.Greater(t, ps.PitchMin[i], r.Trajectory.Pitch[i], "v=%.1f", ps.V[i])
		} else {
			assert.LessOrEqual(t, ps.T[i], ps.TMax)
			assert.Equal(t, r.Settings.MinPitch, ps.PitchMin[i])
		}
	}
}

// TestTune_Deterministic tests that repeated runs give the same result
func TestTune_Deterministic(t *testing.T) {
	// Arrange
	m := exampleModel(t)

	// Act
	first, err := Tune(m, exampleConfig(), nil)
	require.NoError(t, err)
	second, err := Tune(m, exampleConfig(), nil)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first, second)
	first.PitchGains.Kp[0] = 0
	assert.NotEqual(t, first.PitchGains.Kp[0], second.PitchGains.Kp[0], "results share no state")
}

// TestTune_InvalidConfig tests that invalid settings are rejected before tuning
func TestTune_InvalidConfig(t *testing.T) {
	// Arrange
	m := exampleModel(t)
	cfg := exampleConfig()
	cfg.OmegaPC = 0

	// Act
	_, err := Tune(m, cfg, nil)

	// Assert
	assert.Error(t, err)
}
