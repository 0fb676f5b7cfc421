package tuning

import (
	"fmt"
	"math"
)

// ControllerConfig holds the tuning targets and optional controller
// parameters as read from configuration. A nil optional field is unset and
// takes its documented default; an explicit zero is kept as zero.
type ControllerConfig struct {
	ZetaPC  float64 `yaml:"zeta_pc"`  // Pitch loop damping ratio
	OmegaPC float64 `yaml:"omega_pc"` // Pitch loop natural frequency (rad/s)
	ZetaVS  float64 `yaml:"zeta_vs"`  // Torque loop damping ratio
	OmegaVS float64 `yaml:"omega_vs"` // Torque loop natural frequency (rad/s)

	MinPitch     *float64 `yaml:"min_pitch"`     // (rad), default 0
	MaxPitch     *float64 `yaml:"max_pitch"`     // (rad), default 90 deg
	SSVSGain     *float64 `yaml:"ss_vsgain"`     // Torque setpoint smoother gain, default 1
	SSPCGain     *float64 `yaml:"ss_pcgain"`     // Pitch setpoint smoother gain, default 0.001
	SSCornerFreq *float64 `yaml:"ss_cornerfreq"` // Setpoint smoother corner frequency (rad/s)
	PSPercent    *float64 `yaml:"ps_percent"`    // Peak shaving fraction of unshaved peak thrust

	Flags ModeFlagsConfig `yaml:"flags"`
}

// ModeFlagsConfig holds the enumerated controller mode switches written to
// the parameter file. Nil fields take the defaults in DefaultModeFlags.
type ModeFlagsConfig struct {
	LoggingLevel   *int `yaml:"logging_level"`
	FLPFType       *int `yaml:"f_lpf_type"`
	FNotchType     *int `yaml:"f_notch_type"`
	IPCControlMode *int `yaml:"ipc_control_mode"`
	VSControlMode  *int `yaml:"vs_control_mode"`
	PCControlMode  *int `yaml:"pc_control_mode"`
	YControlMode   *int `yaml:"y_control_mode"`
	SSMode         *int `yaml:"ss_mode"`
	WEMode         *int `yaml:"we_mode"`
	PSMode         *int `yaml:"ps_mode"`
}

// ModeFlags are the resolved controller mode switches
type ModeFlags struct {
	LoggingLevel   int
	FLPFType       int
	FNotchType     int
	IPCControlMode int
	VSControlMode  int
	PCControlMode  int
	YControlMode   int
	SSMode         int
	WEMode         int
	PSMode         int
}

// DefaultModeFlags are the mode switches of the reference controller setup
var DefaultModeFlags = ModeFlags{
	LoggingLevel:   1,
	FLPFType:       1,
	FNotchType:     0,
	IPCControlMode: 0,
	VSControlMode:  2,
	PCControlMode:  1,
	YControlMode:   0,
	SSMode:         1,
	WEMode:         0,
	PSMode:         0,
}

// Settings is a fully resolved controller configuration
type Settings struct {
	ZetaPC  float64
	OmegaPC float64
	ZetaVS  float64
	OmegaVS float64

	MinPitch     float64
	MaxPitch     float64
	SSVSGain     float64
	SSPCGain     float64
	SSCornerFreq float64
	PSPercent    float64

	Flags ModeFlags
}

// Float returns a pointer to v, for filling optional config fields
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for filling optional config fields
func Int(v int) *int { return &v }

func orFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// Resolve applies defaults to unset fields and validates the result
func (c ControllerConfig) Resolve() (Settings, error) {
	d := DefaultModeFlags
	s := Settings{
		ZetaPC:  c.ZetaPC,
		OmegaPC: c.OmegaPC,
		ZetaVS:  c.ZetaVS,
		OmegaVS: c.OmegaVS,

		MinPitch:     orFloat(c.MinPitch, DefaultMinPitch),
		MaxPitch:     orFloat(c.MaxPitch, DefaultMaxPitch),
		SSVSGain:     orFloat(c.SSVSGain, DefaultSSVSGain),
		SSPCGain:     orFloat(c.SSPCGain, DefaultSSPCGain),
		SSCornerFreq: orFloat(c.SSCornerFreq, DefaultSSCornerFreq),
		PSPercent:    orFloat(c.PSPercent, DefaultPSPercent),

		Flags: ModeFlags{
			LoggingLevel:   orInt(c.Flags.LoggingLevel, d.LoggingLevel),
			FLPFType:       orInt(c.Flags.FLPFType, d.FLPFType),
			FNotchType:     orInt(c.Flags.FNotchType, d.FNotchType),
			IPCControlMode: orInt(c.Flags.IPCControlMode, d.IPCControlMode),
			VSControlMode:  orInt(c.Flags.VSControlMode, d.VSControlMode),
			PCControlMode:  orInt(c.Flags.PCControlMode, d.PCControlMode),
			YControlMode:   orInt(c.Flags.YControlMode, d.YControlMode),
			SSMode:         orInt(c.Flags.SSMode, d.SSMode),
			WEMode:         orInt(c.Flags.WEMode, d.WEMode),
			PSMode:         orInt(c.Flags.PSMode, d.PSMode),
		},
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the resolved settings for consistency
func (s Settings) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"zeta_pc", s.ZetaPC},
		{"omega_pc", s.OmegaPC},
		{"zeta_vs", s.ZetaVS},
		{"omega_vs", s.OmegaVS},
	} {
		if !(f.value > 0) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be positive, got %g", f.name, f.value)
		}
	}
	if s.MinPitch >= s.MaxPitch {
		return fmt.Errorf("min_pitch (%.4f) must be less than max_pitch (%.4f)", s.MinPitch, s.MaxPitch)
	}
	if !(s.PSPercent > 0) || s.PSPercent > 1 {
		return fmt.Errorf("ps_percent must be in (0, 1], got %g", s.PSPercent)
	}
	if s.SSCornerFreq <= 0 {
		return fmt.Errorf("ss_cornerfreq must be positive, got %g", s.SSCornerFreq)
	}
	return nil
}
