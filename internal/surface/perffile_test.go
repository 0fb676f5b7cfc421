package surface

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePerformance = `# ----- Rotor performance tables for the Sample wind turbine -----
# ------------ Written by hand ------------

# Pitch angle vector - x axis (matrix columns) (deg)
-1.0   0.0   1.0
# TSR vector - y axis (matrix rows) (-)
6.0   8.0
# Wind speed vector - z axis (m/s)
5.0   10.0

# Power coefficient

0.400000   0.450000   0.300000
0.420000   0.480000   0.320000

#  Thrust coefficient

0.800000   0.700000   0.500000
0.850000   0.750000   0.550000

# Torque coefficient

0.066667   0.075000   0.050000
0.052500   0.060000   0.040000
`

// TestReadPerformanceFile tests parsing of a rotor performance table
func TestReadPerformanceFile(t *testing.T) {
	// Act
	perf, err := ReadPerformanceFile(strings.NewReader(samplePerformance))

	// Assert
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-math.Pi / 180, 0, math.Pi / 180}, perf.Cp.PitchGrid(), 1e-12)
	assert.Equal(t, []float64{6, 8}, perf.Cp.TSRGrid())
	assert.Equal(t, []float64{5, 10}, perf.WindSpeeds)

	assert.Equal(t, 0.48, perf.Cp.MaxValue())
	assert.Equal(t, 8.0, perf.Cp.OptimalTSR())
	assert.Equal(t, 0.0, perf.Cp.OptimalPitch())
	assert.Equal(t, []float64{0.85, 0.75, 0.55}, perf.Ct.Values()[1])
	assert.Equal(t, 0.075, perf.Cq.Values()[0][1])

	assert.NoError(t, perf.Cp.ValidateInvertible())
	assert.NoError(t, perf.Ct.ValidateInvertible())
}

// TestReadPerformanceFile_Invalid tests rejection of malformed files
func TestReadPerformanceFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing torque table", samplePerformance[:strings.Index(samplePerformance, "# Torque")]},
		{"bad number", strings.Replace(samplePerformance, "0.450000", "0.45x", 1)},
		{"short row", strings.Replace(samplePerformance, "0.420000   0.480000   0.320000", "0.420000   0.480000", 1)},
		{"split vector", strings.Replace(samplePerformance, "6.0   8.0", "6.0\n8.0", 1)},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			_, err := ReadPerformanceFile(strings.NewReader(tt.content))

			// Assert
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

// TestWritePerformanceFile tests that written tables read back
func TestWritePerformanceFile(t *testing.T) {
	// Arrange
	perf, err := ReadPerformanceFile(strings.NewReader(samplePerformance))
	require.NoError(t, err)

	// Act
	var buf bytes.Buffer
	err = WritePerformanceFile(&buf, "Sample", perf)
	require.NoError(t, err)
	got, err := ReadPerformanceFile(&buf)

	// Assert
	require.NoError(t, err)
	assert.InDeltaSlice(t, perf.Cp.PitchGrid(), got.Cp.PitchGrid(), 1e-6)
	assert.Equal(t, perf.Cp.TSRGrid(), got.Cp.TSRGrid())
	assert.Equal(t, perf.Cp.Values(), got.Cp.Values())
	assert.Equal(t, perf.Ct.Values(), got.Ct.Values())
	assert.Equal(t, perf.Cq.Values(), got.Cq.Values())
}

// TestWritePerformanceFile_Layout tests the header and number formats
func TestWritePerformanceFile_Layout(t *testing.T) {
	// Arrange
	perf, err := ReadPerformanceFile(strings.NewReader(samplePerformance))
	require.NoError(t, err)

	// Act
	var buf bytes.Buffer
	require.NoError(t, WritePerformanceFile(&buf, "Sample", perf))

	// Assert
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "# ----- Rotor performance tables for the Sample wind turbine ----- ", lines[0])
	assert.Contains(t, buf.String(), "\n-1.0000   0.0000   1.0000\n")
	assert.Contains(t, buf.String(), "\n0.420000   0.480000   0.320000\n")
}

// TestWritePerformanceFile_NoWindSpeeds tests that an unreadable file is not written
func TestWritePerformanceFile_NoWindSpeeds(t *testing.T) {
	// Arrange
	perf, err := ReadPerformanceFile(strings.NewReader(samplePerformance))
	require.NoError(t, err)
	perf.WindSpeeds = nil

	// Act
	err = WritePerformanceFile(&bytes.Buffer{}, "Sample", perf)

	// Assert
	assert.ErrorIs(t, err, ErrInvalidTable)
}
