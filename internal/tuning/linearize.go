package tuning

import (
	"fmt"

	"turbine-tuner/internal/surface"
	"turbine-tuner/internal/turbine"
)

// LinearModel is the first-order rotor speed model linearized about every
// operating point of a trajectory:
//
//	d(omega)/dt = A*omega + B_tau*tau_g + B_beta*beta + B_v*v
type LinearModel struct {
	A     []float64 // Plant pole, every operating point
	BTau  float64   // Generator torque input gain, constant
	BBeta []float64 // Blade pitch input gain, every operating point
	Bv    []float64 // Wind speed disturbance input, every operating point

	NumBelowRated int
}

// ATorque returns the plant poles of the below-rated torque loop
func (m LinearModel) ATorque() []float64 { return m.A[:m.NumBelowRated] }

// APitch returns the plant poles of the above-rated pitch loop
func (m LinearModel) APitch() []float64 { return m.A[m.NumBelowRated:] }

// BTorque returns the torque input gain for every below-rated point
func (m LinearModel) BTorque() []float64 {
	b := make([]float64, m.NumBelowRated)
	for i := range b {
		b[i] = m.BTau
	}
	return b
}

// BPitch returns the pitch input gains of the above-rated pitch loop
func (m LinearModel) BPitch() []float64 { return m.BBeta[m.NumBelowRated:] }

// Linearize computes the aerodynamic torque sensitivities at each operating
// point and forms the plant coefficients.
func Linearize(p turbine.Params, cp surface.Surface, t Trajectory) (LinearModel, error) {
	pitchGrid, tsrGrid := cp.PitchGrid(), cp.TSRGrid()
	if len(pitchGrid) < 2 || len(tsrGrid) < 2 {
		return LinearModel{}, fmt.Errorf("power coefficient surface needs at least 2 samples per axis")
	}
	dPitch := pitchGrid[1] - pitchGrid[0]
	dTSR := tsrGrid[1] - tsrGrid[0]

	rho, R, Ng, J := p.Rho, p.RotorRadius, p.Ng, p.J
	k := Ng / 2 * rho * p.RotorArea() * R

	n := t.Len()
	m := LinearModel{
		A:             make([]float64, n),
		BTau:          -Ng * Ng / J,
		BBeta:         make([]float64, n),
		Bv:            make([]float64, n),
		NumBelowRated: t.NumBelowRated,
	}
	for i := 0; i < n; i++ {
		v, tsr, cpOp := t.V[i], t.TSR[i], t.Cp[i]
		gPitch, gTSR := cp.Gradient(t.Pitch[i], tsr)
		dCpdBeta := gPitch / dPitch
		dCpdTSR := gTSR / dTSR

		dTauDBeta := k * (1 / tsr) * dCpdBeta * v * v
		dTauDLambda := k * v * v * (1 / (tsr * tsr)) * (dCpdTSR*tsr - cpOp)
		dLambdaDOmega := R / v / Ng
		dTauDOmega := dTauDLambda * dLambdaDOmega
		dLambdaDv := -(tsr / v)

		m.A[i] = dTauDOmega / J
		m.BBeta[i] = dTauDBeta / J
		m.Bv[i] = dTauDLambda * dLambdaDv / J
	}
	return m, nil
}
