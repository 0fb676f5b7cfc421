package tuning

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"turbine-tuner/internal/surface"
	"turbine-tuner/internal/turbine"
)

// Trajectory is the steady-state operating schedule across wind speed.
// The below-rated points come first; all slices share the same indexing.
type Trajectory struct {
	V     []float64 // Wind speed (m/s)
	TSR   []float64 // Tip-speed ratio target (-)
	Cp    []float64 // Power coefficient target, saturated onto the surface (-)
	Pitch []float64 // Blade pitch at the operating point (rad)

	NumBelowRated int

	// CpSaturated counts the operating points whose power coefficient
	// target was clamped onto the achievable surface range
	CpSaturated int
}

// Len returns the number of operating points
func (t Trajectory) Len() int { return len(t.V) }

// BelowRated returns the region 2 wind speeds
func (t Trajectory) BelowRated() []float64 { return t.V[:t.NumBelowRated] }

// AboveRated returns the region 3 wind speeds
func (t Trajectory) AboveRated() []float64 { return t.V[t.NumBelowRated:] }

// PitchAboveRated returns the region 3 operating pitch angles
func (t Trajectory) PitchAboveRated() []float64 { return t.Pitch[t.NumBelowRated:] }

// WindGrid returns the below-rated wind speeds [vMin, vRated) and the
// above-rated wind speeds (vRated, vMax] at WindStep spacing. Points are
// computed from their index so that the grid does not accumulate error.
func WindGrid(vMin, vRated, vMax float64) (below, above []float64) {
	for k := 0; ; k++ {
		v := vMin + float64(k)*WindStep
		if v >= vRated-gridEpsilon {
			break
		}
		below = append(below, v)
	}
	for k := 0; ; k++ {
		v := vRated + WindStep + float64(k)*WindStep
		if v > vMax+gridEpsilon {
			break
		}
		above = append(above, v)
	}
	return below, above
}

// BuildTrajectory derives the operating points of the turbine: optimal tsr
// and maximum power coefficient below rated, constant rotor speed with a
// cubic power coefficient roll-off above rated, and the pitch angle that
// realizes each power coefficient target on the surface.
func BuildTrajectory(p turbine.Params, cp surface.Surface, logger *zap.Logger) (Trajectory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	below, above := WindGrid(p.VMin, p.VRated, p.VMax)
	n := len(below) + len(above)

	t := Trajectory{
		V:             make([]float64, 0, n),
		TSR:           make([]float64, 0, n),
		Cp:            make([]float64, 0, n),
		Pitch:         make([]float64, n),
		NumBelowRated: len(below),
	}
	t.V = append(append(t.V, below...), above...)

	tsrOpt := cp.OptimalTSR()
	for range below {
		t.TSR = append(t.TSR, tsrOpt)
		t.Cp = append(t.Cp, cp.MaxValue())
	}

	if len(above) > 0 {
		tsrRated := p.RatedRotorSpeed * p.RotorRadius / p.VRated
		tsrFirst := p.RatedRotorSpeed * p.RotorRadius / above[0]
		// Fine pitch is assumed to be zero at the start of region 3
		cpRated := cp.Evaluate(0, tsrFirst)
		for _, v := range above {
			tsr := p.RatedRotorSpeed * p.RotorRadius / v
			t.TSR = append(t.TSR, tsr)
			t.Cp = append(t.Cp, cpRated*math.Pow(tsr/tsrRated, 3))
		}
	}

	pitch := cp.PitchGrid()
	for i := range t.V {
		slice := cp.Slice(t.TSR[i])
		lo, hi, err := branchRange(slice, pitch)
		if err != nil {
			return Trajectory{}, fmt.Errorf("power coefficient at v=%.2f m/s, tsr=%.4f: %w", t.V[i], t.TSR[i], err)
		}
		if target := t.Cp[i]; target < lo || target > hi {
			t.Cp[i] = clamp(target, lo, hi)
			t.CpSaturated++
			logger.Debug("Saturated power coefficient target onto surface",
				zap.Float64("v", t.V[i]),
				zap.Float64("tsr", t.TSR[i]),
				zap.Float64("target", target),
				zap.Float64("cp", t.Cp[i]))
		}
		t.Pitch[i], err = invertSlice(slice, pitch, t.Cp[i])
		if err != nil {
			return Trajectory{}, fmt.Errorf("pitch at v=%.2f m/s: %w", t.V[i], err)
		}
	}
	return t, nil
}
