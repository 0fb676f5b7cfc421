package tuning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"turbine-tuner/internal/surface"
	"turbine-tuner/internal/turbine"
)

// exampleParams describes a 5 MW class turbine
func exampleParams() turbine.Params {
	return turbine.Params{
		Name:            "Example",
		J:               38759228,
		Rho:             1.225,
		RotorRadius:     63,
		Ng:              97,
		RatedRotorSpeed: 1.2671,
		VMin:            3,
		VRated:          11.4,
		VMax:            25,
		RatedTorque:     43093.55,
		RatedPower:      5e6,
		MaxPitchRate:    0.1745,
		MaxTorqueRate:   1500000,
		GenEff:          0.944,
		BldEdgewiseFreq: 4,
	}
}

// analyticTable samples f on a 1 degree pitch grid from 0 to maxPitchDeg and
// a tsr grid from 2 to 12
func analyticTable(t *testing.T, maxPitchDeg int, f func(beta, tsr float64) float64) *surface.Table {
	t.Helper()
	pitch := make([]float64, maxPitchDeg+1)
	for j := range pitch {
		pitch[j] = float64(j) * Deg2Rad
	}
	tsr := make([]float64, 21)
	for i := range tsr {
		tsr[i] = 2 + 0.5*float64(i)
	}
	values := make([][]float64, len(tsr))
	for i, l := range tsr {
		values[i] = make([]float64, len(pitch))
		for j, b := range pitch {
			values[i][j] = f(b, l)
		}
	}
	table, err := surface.NewTable(pitch, tsr, values)
	require.NoError(t, err)
	return table
}

// Both coefficients fall off with pitch towards zero at 30 degrees, and the
// power coefficient peaks at 0.48 for tsr 8 on fine pitch.
func exampleCp(beta, tsr float64) float64 {
	x := (tsr - 8) / 8
	return 0.48 * (1 - x*x) * math.Pow(1-beta/(30*Deg2Rad), 2)
}

func exampleCt(beta, tsr float64) float64 {
	return 0.9 * (tsr / 12) * (1 - beta/(30*Deg2Rad))
}

func exampleModel(t *testing.T) *turbine.Model {
	t.Helper()
	cp := analyticTable(t, 30, exampleCp)
	ct := analyticTable(t, 30, exampleCt)
	m, err := turbine.NewModel(exampleParams(), cp, ct, nil)
	require.NoError(t, err)
	return m
}

func exampleConfig() ControllerConfig {
	return ControllerConfig{
		ZetaPC:  0.7,
		OmegaPC: 0.6,
		ZetaVS:  0.7,
		OmegaVS: 0.3,
	}
}
