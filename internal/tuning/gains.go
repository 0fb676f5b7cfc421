package tuning

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrLengthMismatch is returned when plant coefficient sequences differ in length
	ErrLengthMismatch = errors.New("plant coefficient sequences differ in length")
	// ErrZeroInputGain is returned when a plant input gain is zero
	ErrZeroInputGain = errors.New("plant input gain is zero")
	// ErrTooFewPoints is returned when an affine fit has fewer than two samples
	ErrTooFewPoints = errors.New("at least two operating points are needed to linearize")
)

// GainSchedule holds PI gains indexed by operating point
type GainSchedule struct {
	Kp []float64 // Proportional gains
	Ki []float64 // Integral gains
}

// Len returns the number of scheduled points
func (g GainSchedule) Len() int { return len(g.Kp) }

// Last returns the gains of the final scheduled point
func (g GainSchedule) Last() (kp, ki float64) {
	n := len(g.Kp)
	if n == 0 {
		return 0, 0
	}
	return g.Kp[n-1], g.Ki[n-1]
}

// SecondOrderPI computes PI gains that place the closed-loop poles of the
// first-order plant d(omega)/dt = A*omega + B*u at damping ratio zeta and
// natural frequency omegaN:
//
//	Kp = (2*zeta*omegaN + A) / B
//	Ki = omegaN^2 / B
//
// When v is non-nil, A and B are first replaced by their least-squares
// affine fits in v, which smooths the per-point linearization into a
// monotonic schedule.
func SecondOrderPI(zeta, omegaN float64, a, b, v []float64) (GainSchedule, error) {
	if len(a) != len(b) {
		return GainSchedule{}, fmt.Errorf("%w: len(A)=%d, len(B)=%d", ErrLengthMismatch, len(a), len(b))
	}
	if v != nil {
		if len(v) != len(a) {
			return GainSchedule{}, fmt.Errorf("%w: len(A)=%d, len(v)=%d", ErrLengthMismatch, len(a), len(v))
		}
		if len(v) < 2 {
			return GainSchedule{}, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(v))
		}
		a = affineFit(v, a)
		b = affineFit(v, b)
	}

	g := GainSchedule{
		Kp: make([]float64, len(a)),
		Ki: make([]float64, len(a)),
	}
	for i := range a {
		if b[i] == 0 {
			return GainSchedule{}, fmt.Errorf("%w at index %d", ErrZeroInputGain, i)
		}
		g.Kp[i] = (2*zeta*omegaN + a[i]) / b[i]
		g.Ki[i] = omegaN * omegaN / b[i]
		if !isFinite(g.Kp[i]) || !isFinite(g.Ki[i]) {
			return GainSchedule{}, fmt.Errorf("non-finite gains at index %d (A=%g, B=%g)", i, a[i], b[i])
		}
	}
	return g, nil
}

// affineFit returns the least-squares line through (x, y) evaluated at x
func affineFit(x, y []float64) []float64 {
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = alpha + beta*xi
	}
	return out
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// CheckSchedule looks for gain schedules that are valid numbers but unlikely
// to be intended, and returns a warning for each finding
func CheckSchedule(name string, g GainSchedule) []string {
	var warnings []string

	if g.Len() == 0 {
		return append(warnings, fmt.Sprintf("%s gain schedule is empty", name))
	}
	if signChanges(g.Kp) {
		warnings = append(warnings, fmt.Sprintf("%s Kp changes sign across the schedule", name))
	}
	if signChanges(g.Ki) {
		warnings = append(warnings, fmt.Sprintf("%s Ki changes sign across the schedule", name))
	}
	for i := range g.Kp {
		if g.Kp[i] == 0 && g.Ki[i] == 0 {
			warnings = append(warnings, fmt.Sprintf("%s gains are both zero at index %d", name, i))
			break
		}
	}
	return warnings
}

func signChanges(xs []float64) bool {
	var neg, pos bool
	for _, x := range xs {
		neg = neg || x < 0
		pos = pos || x > 0
	}
	return neg && pos
}
