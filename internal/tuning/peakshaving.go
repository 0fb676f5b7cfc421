package tuning

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"turbine-tuner/internal/surface"
)

// PeakShavingSchedule is the minimum blade pitch schedule that caps rotor
// thrust, with the intermediate thrust figures kept for inspection. All
// slices are aligned with the full operating trajectory.
type PeakShavingSchedule struct {
	V        []float64 // Wind speed (m/s)
	PitchMin []float64 // Minimum blade pitch (rad)
	CtOp     []float64 // Thrust coefficient after shaving (-)
	CtMax    []float64 // Thrust coefficient ceiling (-)
	T        []float64 // Unshaved rotor thrust (N)
	TShaved  []float64 // Rotor thrust after shaving (N)
	Shaved   []bool    // Whether the point exceeded the thrust ceiling

	TMax float64 // Thrust ceiling (N)

	// CtClamped counts unshaved points whose ceiling exceeded the largest
	// thrust coefficient on their slice
	CtClamped int
}

// NumShaved returns the number of operating points that were shaved
func (s PeakShavingSchedule) NumShaved() int {
	n := 0
	for _, shaved := range s.Shaved {
		if shaved {
			n++
		}
	}
	return n
}

// PeakShave computes the minimum pitch needed at each operating point to
// keep rotor thrust below psPercent of the unshaved peak thrust. Points
// under the ceiling keep minPitch.
func PeakShave(t Trajectory, ct surface.Surface, rho, area, minPitch, psPercent float64, logger *zap.Logger) (PeakShavingSchedule, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := t.Len()
	s := PeakShavingSchedule{
		V:        append([]float64(nil), t.V...),
		PitchMin: make([]float64, n),
		CtOp:     make([]float64, n),
		CtMax:    make([]float64, n),
		T:        make([]float64, n),
		TShaved:  make([]float64, n),
		Shaved:   make([]bool, n),
	}
	if n == 0 {
		return s, nil
	}

	dynamicPressure := func(v float64) float64 { return 0.5 * rho * area * v * v }
	for i := range t.V {
		s.CtOp[i] = ct.Evaluate(t.Pitch[i], t.TSR[i])
		s.T[i] = dynamicPressure(t.V[i]) * s.CtOp[i]
	}
	s.TMax = psPercent * floats.Max(s.T)

	pitch := ct.PitchGrid()
	for i := range t.V {
		s.PitchMin[i] = minPitch
		s.CtMax[i] = s.TMax / dynamicPressure(t.V[i])

		slice := ct.Slice(t.TSR[i])
		if s.T[i] > s.TMax {
			s.Shaved[i] = true
			s.CtOp[i] = s.CtMax[i]
			p, err := invertSlice(slice, pitch, s.CtMax[i])
			if err != nil {
				return PeakShavingSchedule{}, fmt.Errorf("thrust coefficient at v=%.2f m/s, tsr=%.4f: %w", t.V[i], t.TSR[i], err)
			}
			if p > minPitch {
				s.PitchMin[i] = p
			}
			logger.Debug("Shaved operating point",
				zap.Float64("v", t.V[i]),
				zap.Float64("thrust", s.T[i]),
				zap.Float64("ct_max", s.CtMax[i]),
				zap.Float64("pitch_min", s.PitchMin[i]))
		} else if top := floats.Max(slice); s.CtMax[i] > top {
			s.CtMax[i] = top
			s.CtClamped++
		}
		s.TShaved[i] = dynamicPressure(t.V[i]) * s.CtOp[i]
	}
	return s, nil
}
