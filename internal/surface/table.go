// Package surface provides rotor aerodynamic performance surfaces: power,
// thrust and torque coefficients tabulated over blade pitch and tip-speed
// ratio, with interpolation, gradient and slice queries.
package surface

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidTable is returned when a performance table is malformed.
var ErrInvalidTable = errors.New("invalid performance table")

// ErrNonMonotonicSlice is returned when a surface slice cannot be inverted.
var ErrNonMonotonicSlice = errors.New("performance surface slice is not monotonic")

// gridTolerance is the relative tolerance used to check uniform grid spacing
const gridTolerance = 1e-6

// Surface is the query interface the tuning engine consumes
type Surface interface {
	// Evaluate returns the coefficient at (pitch [rad], tsr [-])
	Evaluate(pitch, tsr float64) float64
	// Slice returns the coefficient at every tabulated pitch for a fixed tsr
	Slice(tsr float64) []float64
	// Gradient returns the partial derivatives per grid step in the
	// pitch and tsr directions
	Gradient(pitch, tsr float64) (dPitch, dTSR float64)
	PitchGrid() []float64
	TSRGrid() []float64
	OptimalTSR() float64
	MaxValue() float64
}

// Table is a coefficient surface sampled on a rectangular pitch x TSR grid.
// Values are indexed [tsr][pitch], matching the row/column layout of the
// rotor performance text file.
type Table struct {
	pitch  []float64
	tsr    []float64
	values [][]float64

	gradPitch [][]float64
	gradTSR   [][]float64

	max      float64
	optTSR   float64
	optPitch float64
}

// NewTable builds a table from its grids and values. The grids must be
// strictly increasing and uniformly spaced, and values must have
// len(tsr) rows of len(pitch) finite entries.
func NewTable(pitch, tsr []float64, values [][]float64) (*Table, error) {
	if err := checkGrid("pitch", pitch); err != nil {
		return nil, err
	}
	if err := checkGrid("tsr", tsr); err != nil {
		return nil, err
	}
	if len(values) != len(tsr) {
		return nil, fmt.Errorf("%w: %d rows for %d tsr values", ErrInvalidTable, len(values), len(tsr))
	}

	t := &Table{
		pitch:  append([]float64(nil), pitch...),
		tsr:    append([]float64(nil), tsr...),
		values: make([][]float64, len(values)),
		max:    math.Inf(-1),
	}
	for i, row := range values {
		if len(row) != len(pitch) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d pitch angles",
				ErrInvalidTable, i, len(row), len(pitch))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite value at row %d, column %d", ErrInvalidTable, i, j)
			}
		}
		t.values[i] = append([]float64(nil), row...)

		j := floats.MaxIdx(row)
		if row[j] > t.max {
			t.max = row[j]
			t.optTSR = tsr[i]
			t.optPitch = pitch[j]
		}
	}

	t.gradTSR, t.gradPitch = gradient(t.values)
	return t, nil
}

func checkGrid(name string, grid []float64) error {
	if len(grid) < 2 {
		return fmt.Errorf("%w: %s grid needs at least 2 values, got %d", ErrInvalidTable, name, len(grid))
	}
	step := grid[1] - grid[0]
	for k := 1; k < len(grid); k++ {
		d := grid[k] - grid[k-1]
		if !(d > 0) {
			return fmt.Errorf("%w: %s grid is not strictly increasing at index %d", ErrInvalidTable, name, k)
		}
		if math.Abs(d-step) > gridTolerance*math.Abs(step) {
			return fmt.Errorf("%w: %s grid is not uniformly spaced at index %d", ErrInvalidTable, name, k)
		}
	}
	return nil
}

// gradient computes the central-difference gradient of a 2-D field in grid
// index units, using one-sided differences at the edges.
func gradient(f [][]float64) (dRow, dCol [][]float64) {
	rows, cols := len(f), len(f[0])
	dRow = make([][]float64, rows)
	dCol = make([][]float64, rows)
	for i := range f {
		dRow[i] = make([]float64, cols)
		dCol[i] = make([]float64, cols)
		for j := range f[i] {
			dRow[i][j] = diff(rows, i, func(k int) float64 { return f[k][j] })
			dCol[i][j] = diff(cols, j, func(k int) float64 { return f[i][k] })
		}
	}
	return dRow, dCol
}

func diff(n, k int, at func(int) float64) float64 {
	switch k {
	case 0:
		return at(1) - at(0)
	case n - 1:
		return at(n-1) - at(n-2)
	default:
		return (at(k+1) - at(k-1)) / 2
	}
}

// locate returns the lower cell index and the fractional position of x
// within grid, clamping x to the grid range.
func locate(grid []float64, x float64) (int, float64) {
	n := len(grid)
	if x <= grid[0] {
		return 0, 0
	}
	if x >= grid[n-1] {
		return n - 2, 1
	}
	k := sort.SearchFloat64s(grid, x) - 1
	return k, (x - grid[k]) / (grid[k+1] - grid[k])
}

func bilinear(f [][]float64, i int, ti float64, j int, tj float64) float64 {
	lo := (1-tj)*f[i][j] + tj*f[i][j+1]
	hi := (1-tj)*f[i+1][j] + tj*f[i+1][j+1]
	return (1-ti)*lo + ti*hi
}

// Evaluate interpolates the surface bilinearly. Points outside the grid are
// clamped to its edges.
func (t *Table) Evaluate(pitch, tsr float64) float64 {
	i, ti := locate(t.tsr, tsr)
	j, tj := locate(t.pitch, pitch)
	return bilinear(t.values, i, ti, j, tj)
}

// Slice returns the surface at every tabulated pitch angle for the given tsr
func (t *Table) Slice(tsr float64) []float64 {
	i, ti := locate(t.tsr, tsr)
	out := make([]float64, len(t.pitch))
	for j := range out {
		out[j] = (1-ti)*t.values[i][j] + ti*t.values[i+1][j]
	}
	return out
}

// Gradient returns the surface gradient per grid step. Divide by the grid
// spacing to obtain physical units.
func (t *Table) Gradient(pitch, tsr float64) (dPitch, dTSR float64) {
	i, ti := locate(t.tsr, tsr)
	j, tj := locate(t.pitch, pitch)
	return bilinear(t.gradPitch, i, ti, j, tj), bilinear(t.gradTSR, i, ti, j, tj)
}

// PitchGrid returns the tabulated pitch angles in radians
func (t *Table) PitchGrid() []float64 { return t.pitch }

// TSRGrid returns the tabulated tip-speed ratios
func (t *Table) TSRGrid() []float64 { return t.tsr }

// Values returns the raw table rows, indexed [tsr][pitch]
func (t *Table) Values() [][]float64 { return t.values }

// MaxValue returns the largest tabulated coefficient
func (t *Table) MaxValue() float64 { return t.max }

// OptimalTSR returns the tip-speed ratio at which MaxValue occurs
func (t *Table) OptimalTSR() float64 { return t.optTSR }

// OptimalPitch returns the pitch angle at which MaxValue occurs
func (t *Table) OptimalPitch() float64 { return t.optPitch }

// ValidateInvertible checks that every tabulated tsr column can be inverted
// for pitch. It is required of the power and thrust surfaces.
func (t *Table) ValidateInvertible() error {
	for i, tsr := range t.tsr {
		if _, _, err := FeatherBranch(t.values[i], t.pitch); err != nil {
			return fmt.Errorf("tsr %.4g (row %d): %w", tsr, i, err)
		}
	}
	return nil
}

// FeatherBranch returns the part of a slice running from its peak towards
// the feathered end of the pitch grid, reordered so that coefficients are
// strictly increasing. The branch must hold at least two samples and the
// coefficient must strictly decrease with pitch along it.
func FeatherBranch(slice, pitch []float64) (coeffs, pitches []float64, err error) {
	if len(slice) != len(pitch) {
		return nil, nil, fmt.Errorf("%w: %d values for %d pitch angles", ErrNonMonotonicSlice, len(slice), len(pitch))
	}
	peak := floats.MaxIdx(slice)
	n := len(slice) - peak
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: peak at the last pitch angle", ErrNonMonotonicSlice)
	}

	coeffs = make([]float64, n)
	pitches = make([]float64, n)
	for k := 0; k < n; k++ {
		src := len(slice) - 1 - k
		coeffs[k] = slice[src]
		pitches[k] = pitch[src]
		if k > 0 && !(coeffs[k] > coeffs[k-1]) {
			return nil, nil, fmt.Errorf("%w: value does not decrease at pitch %.4g rad",
				ErrNonMonotonicSlice, pitch[src+1])
		}
	}
	return coeffs, pitches, nil
}
