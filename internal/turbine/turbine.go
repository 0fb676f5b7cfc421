// Package turbine holds the physical description of a wind turbine used by
// the controller tuning engine.
package turbine

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"turbine-tuner/internal/surface"
)

// Params contains the scalar physical constants of a turbine
type Params struct {
	Name            string `yaml:"name"`
	PerformanceFile string `yaml:"performance_file"` // Cp_Ct_Cq table, relative to the config file

	J               float64 `yaml:"J"`                 // Rotor inertia (kg m^2)
	Rho             float64 `yaml:"rho"`               // Air density (kg/m^3)
	RotorRadius     float64 `yaml:"rotor_radius"`      // Rotor radius (m)
	Ng              float64 `yaml:"Ng"`                // Gearbox ratio (-)
	RatedRotorSpeed float64 `yaml:"rated_rotor_speed"` // Rated rotor speed (rad/s)

	VMin   float64 `yaml:"v_min"`   // Cut-in wind speed (m/s)
	VRated float64 `yaml:"v_rated"` // Rated wind speed (m/s)
	VMax   float64 `yaml:"v_max"`   // Cut-out wind speed (m/s)

	RatedTorque     float64 `yaml:"rated_torque"`      // Rated generator torque (Nm)
	RatedPower      float64 `yaml:"rated_power"`       // Rated power (W)
	MaxPitchRate    float64 `yaml:"max_pitch_rate"`    // (rad/s)
	MaxTorqueRate   float64 `yaml:"max_torque_rate"`   // (Nm/s)
	GenEff          float64 `yaml:"gen_eff"`           // Generator efficiency (-)
	BldEdgewiseFreq float64 `yaml:"bld_edgewise_freq"` // Blade edgewise natural frequency (rad/s)
}

// RotorArea returns the swept rotor area (m^2)
func (p Params) RotorArea() float64 {
	return math.Pi * p.RotorRadius * p.RotorRadius
}

// Validate checks the parameters for physical consistency
func (p Params) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"J", p.J},
		{"rho", p.Rho},
		{"rotor_radius", p.RotorRadius},
		{"Ng", p.Ng},
		{"rated_rotor_speed", p.RatedRotorSpeed},
		{"v_min", p.VMin},
		{"v_rated", p.VRated},
		{"v_max", p.VMax},
	}
	for _, f := range positive {
		if !(f.value > 0) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be positive, got %g", f.name, f.value)
		}
	}
	if p.VMin >= p.VRated {
		return fmt.Errorf("v_min (%.2f) must be less than v_rated (%.2f)", p.VMin, p.VRated)
	}
	if p.VRated >= p.VMax {
		return fmt.Errorf("v_rated (%.2f) must be less than v_max (%.2f)", p.VRated, p.VMax)
	}
	if p.GenEff < 0 || p.GenEff > 1 {
		return fmt.Errorf("gen_eff must be between 0-1, got %.3f", p.GenEff)
	}
	return nil
}

// Model is a turbine together with its rotor performance surfaces
type Model struct {
	Params

	Cp surface.Surface // Power coefficient
	Ct surface.Surface // Thrust coefficient
	Cq surface.Surface // Torque coefficient
}

// NewModel validates the parameters and bundles them with the surfaces
func NewModel(p Params, cp, ct, cq surface.Surface) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("turbine %q: %w", p.Name, err)
	}
	if cp == nil || ct == nil {
		return nil, fmt.Errorf("turbine %q: power and thrust surfaces are required", p.Name)
	}
	return &Model{Params: p, Cp: cp, Ct: ct, Cq: cq}, nil
}

// Load reads the turbine's performance file, resolved against baseDir when
// relative, validates that the power and thrust surfaces can be inverted for
// pitch and returns the model. The parsed tables are returned as well so
// that callers can re-emit them.
func Load(p Params, baseDir string) (*Model, *surface.Performance, error) {
	if p.PerformanceFile == "" {
		return nil, nil, fmt.Errorf("turbine %q: performance_file is required", p.Name)
	}
	path := p.PerformanceFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open performance file %s: %w", path, err)
	}
	defer f.Close()

	perf, err := surface.ReadPerformanceFile(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse performance file %s: %w", path, err)
	}
	if err := perf.Cp.ValidateInvertible(); err != nil {
		return nil, nil, fmt.Errorf("power coefficient table %s: %w", path, err)
	}
	if err := perf.Ct.ValidateInvertible(); err != nil {
		return nil, nil, fmt.Errorf("thrust coefficient table %s: %w", path, err)
	}

	m, err := NewModel(p, perf.Cp, perf.Ct, perf.Cq)
	if err != nil {
		return nil, nil, err
	}
	return m, perf, nil
}
