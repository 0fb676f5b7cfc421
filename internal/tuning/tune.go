package tuning

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"turbine-tuner/internal/turbine"
)

// Result holds everything a tuning run produces. Each call to Tune returns
// a new Result that shares no state with earlier runs.
type Result struct {
	Settings Settings

	Trajectory Trajectory
	Linear     LinearModel

	PitchGains  GainSchedule // Above rated, indexed like Trajectory.AboveRated
	TorqueGains GainSchedule // Below rated, indexed like Trajectory.BelowRated

	TSROpt   float64 // Power-maximizing tip-speed ratio (-)
	CpMax    float64 // Maximum power coefficient (-)
	VSRgn2K  float64 // Region 2 generator torque constant (Nm/(rad/s)^2)
	VSRefSpd float64 // Rated generator speed (rad/s)
	VSMinSpd float64 // Optimal mode minimum generator speed (rad/s)

	PeakShaving PeakShavingSchedule

	Diagnostics Diagnostics
}

// Diagnostics summarizes value substitutions and warnings from a run
type Diagnostics struct {
	CpSaturated int      // Power coefficient targets clamped onto the surface
	CtClamped   int      // Thrust ceilings clamped to the surface maximum
	Shaved      int      // Operating points with raised minimum pitch
	Warnings    []string // Gain schedule findings
}

// Tune computes the controller tuning for a turbine: the operating
// trajectory, the linearized plant, the pitch and torque gain schedules,
// the region 2 torque constants and the peak shaving schedule.
func Tune(m *turbine.Model, cfg ControllerConfig, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("tuning")

	settings, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid controller config: %w", err)
	}

	traj, err := BuildTrajectory(m.Params, m.Cp, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build operating trajectory: %w", err)
	}
	logger.Info("Built operating trajectory",
		zap.Int("below_rated", traj.NumBelowRated),
		zap.Int("above_rated", traj.Len()-traj.NumBelowRated),
		zap.Int("cp_saturated", traj.CpSaturated))

	lin, err := Linearize(m.Params, m.Cp, traj)
	if err != nil {
		return nil, fmt.Errorf("failed to linearize: %w", err)
	}

	pitchGains, err := SecondOrderPI(settings.ZetaPC, settings.OmegaPC, lin.APitch(), lin.BPitch(), traj.AboveRated())
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize pitch gain schedule: %w", err)
	}
	torqueGains, err := SecondOrderPI(settings.ZetaVS, settings.OmegaVS, lin.ATorque(), lin.BTorque(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize torque gain schedule: %w", err)
	}

	p := m.Params
	cpMax, tsrOpt := m.Cp.MaxValue(), m.Cp.OptimalTSR()
	r := &Result{
		Settings:    settings,
		Trajectory:  traj,
		Linear:      lin,
		PitchGains:  pitchGains,
		TorqueGains: torqueGains,
		TSROpt:      tsrOpt,
		CpMax:       cpMax,
		VSRgn2K:     0.5 * p.Rho * p.RotorArea() * math.Pow(p.RotorRadius, 5) * cpMax / (math.Pow(tsrOpt, 3) * p.Ng),
		VSRefSpd:    math.Min(tsrOpt*p.VRated/p.RotorRadius, p.RatedRotorSpeed) * p.Ng,
		VSMinSpd:    tsrOpt * p.VMin / p.RotorRadius * p.Ng,
	}

	r.PeakShaving, err = PeakShave(traj, m.Ct, p.Rho, p.RotorArea(), settings.MinPitch, settings.PSPercent, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compute peak shaving schedule: %w", err)
	}

	r.Diagnostics = Diagnostics{
		CpSaturated: traj.CpSaturated,
		CtClamped:   r.PeakShaving.CtClamped,
		Shaved:      r.PeakShaving.NumShaved(),
	}
	r.Diagnostics.Warnings = append(CheckSchedule("pitch", pitchGains), CheckSchedule("torque", torqueGains)...)

	logger.Info("Tuned controller",
		zap.Int("pitch_schedule", pitchGains.Len()),
		zap.Int("torque_schedule", torqueGains.Len()),
		zap.Int("peak_shaved", r.Diagnostics.Shaved),
		zap.Float64("vs_rgn2k", r.VSRgn2K))
	return r, nil
}
