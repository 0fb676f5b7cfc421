package discon

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field widths and precisions of the parameter file
const (
	scalarWidth    = 12 // Scalars are left aligned in this many columns
	countWidth     = 6  // Table lengths are left aligned in this many columns
	arrayPrecision = 8  // Significant digits of every array element
)

// general formats x with prec significant digits in the shortest of fixed
// or exponent notation. Trailing zeros are dropped but a fixed-point result
// keeps at least one digit after the decimal point, so 1 renders as "1.0"
// and 1e-05 as "1e-05".
func general(x float64, prec int) string {
	switch {
	case math.IsNaN(x):
		return "nan"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(x, 'g', prec, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// scalar renders a single value left aligned in the scalar field
func scalar(x float64, prec int) string {
	return fmt.Sprintf("%-*s", scalarWidth, general(x, prec))
}

// count renders a table length left aligned in the count field
func count(n int) string {
	return fmt.Sprintf("%-*d", countWidth, n)
}

// array renders values separated by single spaces
func array(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = general(x, arrayPrecision)
	}
	return strings.Join(parts, " ")
}
