// Package tuning computes gain-scheduled PI controller tunings and the
// peak-shaving minimum pitch schedule for a variable-speed, variable-pitch
// wind turbine from its rotor performance surfaces.
package tuning

import "math"

// Unit conversions
const (
	Deg2Rad    = math.Pi / 180
	Rad2Deg    = 180 / math.Pi
	RPM2RadSec = 2 * math.Pi / 60
	RadSec2RPM = 60 / (2 * math.Pi)
)

// WindStep is the spacing of the operating-point wind speed grid (m/s)
const WindStep = 0.5

// gridEpsilon absorbs floating point error when comparing grid points
// against the rated and cut-out wind speeds
const gridEpsilon = 1e-9

// Defaults for optional controller parameters
const (
	DefaultMinPitch     = 0.0
	DefaultMaxPitch     = 90 * Deg2Rad
	DefaultSSVSGain     = 1.0
	DefaultSSPCGain     = 0.001
	DefaultSSCornerFreq = 0.62831850001 // 10 second time constant
	DefaultPSPercent    = 0.75
)

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
