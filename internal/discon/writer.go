// Package discon writes controller tuning results to the DISCON parameter
// file read by the runtime turbine controller.
package discon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"turbine-tuner/internal/tuning"
	"turbine-tuner/internal/turbine"
)

// DefaultPerfFileName is the performance table file name written when none
// is configured
const DefaultPerfFileName = "Cp_Ct_Cq.txt"

// Input is everything the parameter file is rendered from
type Input struct {
	Turbine turbine.Params
	Result  *tuning.Result

	// PerfFileName is the rotor performance table the runtime controller loads
	PerfFileName string
	// PerfTableSize is the number of pitch angles and tip-speed ratios in it
	PerfTableSize [2]int

	// Date is written to the file header
	Date time.Time
}

type lineWriter struct {
	w *bufio.Writer
}

func (l lineWriter) line(s string) {
	l.w.WriteString(s)
	l.w.WriteByte('\n')
}

func (l lineWriter) linef(format string, args ...interface{}) {
	fmt.Fprintf(l.w, format, args...)
	l.w.WriteByte('\n')
}

func (l lineWriter) blank() {
	l.w.WriteByte('\n')
}

// Write renders the parameter file to out
func Write(out io.Writer, in Input) error {
	if in.Result == nil {
		return fmt.Errorf("no tuning result to write")
	}
	if in.PerfFileName == "" {
		in.PerfFileName = DefaultPerfFileName
	}
	r := in.Result
	p := in.Turbine
	s := r.Settings
	f := s.Flags
	nPC := len(r.Trajectory.PitchAboveRated())
	vsKp, vsKi := r.TorqueGains.Last()

	bw := bufio.NewWriter(out)
	w := lineWriter{bw}
	w.linef("! Controller parameter input file for the %s wind turbine", in.Turbine.Name)
	w.linef("!    - File written using NREL Reference Controller tuning logic on %s", in.Date.Format("01/02/06"))
	w.blank()
	w.line("!------- DEBUG ------------------------------------------------------------")
	w.linef("%d\t\t\t\t\t! LoggingLevel\t\t- {0: write no debug files, 1: write standard output .dbg-file, 2: write standard output .dbg-file and complete avrSWAP-array .dbg2-file", f.LoggingLevel)
	w.blank()
	w.line("!------- CONTROLLER FLAGS -------------------------------------------------")
	w.linef("%d\t\t\t\t\t! F_LPFType\t\t\t- {1: first-order low-pass filter, 2: second-order low-pass filter}, [rad/s] (currently filters generator speed and pitch control signals)", f.FLPFType)
	w.linef("%d\t\t\t\t\t! F_NotchType\t\t- Notch on the measured generator speed {0: disable, 1: enable} ", f.FNotchType)
	w.linef("%d\t\t\t\t\t! IPC_ControlMode\t- Turn Individual Pitch Control (IPC) for fatigue load reductions (pitch contribution) {0: off, 1: 1P reductions, 2: 1P+2P reductions}", f.IPCControlMode)
	w.linef("%d\t\t\t\t\t! VS_ControlMode\t- Generator torque control mode in above rated conditions {0: constant torque, 1: constant power, 2: TSR tracking PI control}", f.VSControlMode)
	w.linef("%d                   ! PC_ControlMode    - Blade pitch control mode {0: No pitch, fix to fine pitch, 1: active PI blade pitch control}", f.PCControlMode)
	w.linef("%d\t\t\t\t\t! Y_ControlMode\t\t- Yaw control mode {0: no yaw control, 1: yaw rate control, 2: yaw-by-IPC}", f.YControlMode)
	w.linef("%d                   ! SS_Mode           - Setpoint Smoother mode {0: no setpoint smoothing, 1: introduce setpoint smoothing}", f.SSMode)
	w.linef("%d                   ! WE_Mode           - Wind speed estimator mode {0: One-second low pass filtered hub height wind speed, 1: Imersion and Invariance Estimator (Ortega et al.)}", f.WEMode)
	w.linef("%d                   ! PS_Mode           - Peak shaving mode {0: no peak shaving, 1: implement peak shaving}", f.PSMode)
	w.blank()
	w.line("!------- FILTERS ----------------------------------------------------------")
	w.linef("%s        ! F_LPFCornerFreq\t- Corner frequency (-3dB point) in the low-pass filters, [rad/s]", scalar(p.BldEdgewiseFreq/4, 11))
	w.line("0                   ! F_LPFDamping\t\t- Damping coefficient [used only when F_FilterType = 2]")
	w.line("0\t\t\t\t\t! F_NotchCornerFreq\t- Natural frequency of the notch filter, [rad/s]")
	w.line("0\t0\t\t\t\t! F_NotchBetaNumDen\t- Two notch damping values (numerator and denominator, resp) - determines the width and depth of the notch, [-]")
	w.linef("%s        ! F_SSCornerFreq    - Corner frequency (-3dB point) in the first order low pass filter for the setpoint smoother, [rad/s].", scalar(s.SSCornerFreq, 10))
	w.blank()
	w.line("!------- BLADE PITCH CONTROL ----------------------------------------------")
	w.linef("%s              ! PC_GS_n\t\t\t- Amount of gain-scheduling table entries", count(nPC))
	w.linef("%s              ! PC_GS_angles\t    - Gain-schedule table: pitch angles", array(r.Trajectory.PitchAboveRated()))
	w.linef("%s              ! PC_GS_KP\t\t- Gain-schedule table: pitch controller kp gains", array(r.PitchGains.Kp))
	w.linef("%s              ! PC_GS_KI\t\t- Gain-schedule table: pitch controller ki gains", array(r.PitchGains.Ki))
	w.linef("%s              ! PC_GS_KD\t\t\t- Gain-schedule table: pitch controller kd gains", array(make([]float64, nPC)))
	w.linef("%s              ! PC_GS_TF\t\t\t- Gain-schedule table: pitch controller tf gains (derivative filter)", array(make([]float64, nPC)))
	w.linef("%s        ! PC_MaxPit\t\t\t- Maximum physical pitch limit, [rad].", scalar(s.MaxPitch, 11))
	w.linef("%s        ! PC_MinPit\t\t\t- Minimum physical pitch limit, [rad].", scalar(s.MinPitch, 11))
	w.linef("%s\t    ! PC_MaxRat\t\t\t- Maximum pitch rate (in absolute value) in pitch controller, [rad/s].", scalar(p.MaxPitchRate, 11))
	w.linef("%s\t    ! PC_MinRat\t\t\t- Minimum pitch rate (in absolute value) in pitch controller, [rad/s].", scalar(-p.MaxPitchRate, 11))
	w.linef("%s        ! PC_RefSpd\t\t\t- Desired (reference) HSS speed for pitch controller, [rad/s].", scalar(p.RatedRotorSpeed*p.Ng, 11))
	w.linef("%s        ! PC_FinePit\t\t- Record 5: Below-rated pitch angle set-point, [rad]", scalar(s.MinPitch, 11))
	w.line("0.003490658\t\t\t! PC_Switch\t\t\t- Angle above lowest minimum pitch angle for switch, [rad]")
	w.line("0\t\t\t\t\t! Z_EnableSine\t\t- Enable/disable sine pitch excitation, used to validate for dynamic induction control, will be removed later, [-]")
	w.line("0.0349066\t\t\t! Z_PitchAmplitude\t- Amplitude of sine pitch excitation, [rad]")
	w.line("0\t\t\t\t\t! Z_PitchFrequency\t- Frequency of sine pitch excitation, [rad/s]")
	w.blank()
	w.line("!------- INDIVIDUAL PITCH CONTROL -----------------------------------------")
	w.line("0.0\t\t\t        ! IPC_IntSat\t\t- Integrator saturation (maximum signal amplitude contribution to pitch from IPC), [rad]")
	w.line("0.0 0.0\t\t\t\t! IPC_KI\t\t\t- Integral gain for the individual pitch controller: first parameter for 1P reductions, second for 2P reductions, [-]")
	w.line("0.0\t0.0\t\t        ! IPC_aziOffset\t\t- Phase offset added to the azimuth angle for the individual pitch controller, [rad]. ")
	w.line("0.0\t\t\t\t\t! IPC_CornerFreqAct - Corner frequency of the first-order actuators model, to induce a phase lag in the IPC signal {0: Disable}, [rad/s]")
	w.blank()
	w.line("!------- VS TORQUE CONTROL ------------------------------------------------")
	w.linef("%s        ! VS_GenEff\t\t\t- Generator efficiency mechanical power -> electrical power, [should match the efficiency defined in the generator properties!], [-]", scalar(p.GenEff, 11))
	w.linef("%s        ! VS_ArSatTq\t\t- Above rated generator torque PI control saturation, [Nm]", scalar(p.RatedTorque, 11))
	w.linef("%s        ! VS_MaxRat\t\t\t- Maximum torque rate (in absolute value) in torque controller, [Nm/s].", scalar(p.MaxTorqueRate, 11))
	w.linef("%s        ! VS_MaxTq\t\t\t- Maximum generator torque in Region 3 (HSS side), [Nm].", scalar(p.RatedTorque*1.1, 11))
	w.line("0.0\t\t\t\t\t! VS_MinTq\t\t\t- Minimum generator (HSS side), [Nm].")
	w.linef("%s        ! VS_MinOMSpd\t\t- Optimal mode minimum speed, cut-in speed towards optimal mode gain path, [rad/s]", scalar(r.VSMinSpd, 11))
	w.linef("%s        ! VS_Rgn2K\t\t\t- Generator torque constant in Region 2 (HSS side), [N-m/(rad/s)^2]", scalar(r.VSRgn2K, 11))
	w.linef("%s        ! VS_RtPwr\t\t\t- Wind turbine rated power [W]", scalar(p.RatedPower, 11))
	w.linef("%s        ! VS_RtTq\t\t\t- Rated torque, [Nm].", scalar(p.RatedTorque, 11))
	w.linef("%s        ! VS_RefSpd\t\t\t- Rated generator speed [rad/s]", scalar(r.VSRefSpd, 11))
	w.line("1\t\t\t\t\t! VS_n\t\t\t\t- Number of generator PI torque controller gains")
	w.linef("%s       ! VS_KP\t\t\t\t- Proportional gain for generator PI torque controller [1/(rad/s) Nm]. (Only used in the transitional 2.5 region if VS_ControlMode =/ 2)", scalar(vsKp, 11))
	w.linef("%s       ! VS_KI\t\t\t\t- Integral gain for generator PI torque controller [1/rad Nm]. (Only used in the transitional 2.5 region if VS_ControlMode =/ 2)", scalar(vsKi, 11))
	w.linef("%s        ! VS_TSRopt\t\t\t- Power-maximizing region 2 tip-speed-ratio [rad].", scalar(r.TSROpt, 11))
	w.blank()
	w.line("!------- SETPOINT SMOOTHER ---------------------------------------------")
	w.linef("%s        ! SS_VSGain         - Variable speed torque controller setpoint smoother gain, [-].", scalar(s.SSVSGain, 11))
	w.linef("%s        ! SS_PCGain         - Collective pitch controller setpoint smoother gain, [-].", scalar(s.SSPCGain, 11))
	w.blank()
	w.line("!------- WIND SPEED ESTIMATOR ---------------------------------------------")
	w.linef("%s        ! WE_BladeRadius\t- Blade length [m]", scalar(p.RotorRadius, 11))
	w.line("4\t\t\t\t\t! WE_CP_n\t\t\t- Amount of parameters in the Cp array")
	w.line("0.0 0.0 0.0 0.0\t    ! WE_CP - Parameters that define the parameterized CP(lambda) function")
	w.line("0.0\t\t\t\t\t! WE_Gamma\t\t\t- Adaption gain of the wind speed estimator algorithm [m/rad]")
	w.linef("%s        ! WE_GearboxRatio\t- Gearbox ratio [>=1],  [-]", scalar(p.Ng, 12))
	w.linef("%s        ! WE_Jtot\t\t\t- Total drivetrain inertia, including blades, hub and casted generator inertia to LSS, [kg m^2]", scalar(p.J, 12))
	w.linef("%s\t\t\t\t! WE_RhoAir\t\t\t- Air density, [kg m^-3]", general(p.Rho, 11))
	w.linef("\"%s\"      ! PerfFileName      - File containing rotor performance tables (Cp,Ct,Cq)", in.PerfFileName)
	w.linef("%-4d %-4d           ! PerfTableSize     - Size of rotor performance tables, first number refers to number of blade pitch angles, second number referse to number of tip-speed ratios", in.PerfTableSize[0], in.PerfTableSize[1])
	w.linef("%s              ! WE_FOPoles_N      - Number of first-order system poles used in EKF", count(len(r.Linear.A)))
	w.linef("%s              ! WE_FOPoles_v      - Wind speeds corresponding to first-order system poles [m/s]", array(r.Trajectory.V))
	w.linef("%s              ! WE_FOPoles        - First order system poles", array(r.Linear.A))
	w.blank()
	w.line("!------- YAW CONTROL ------------------------------------------------------")
	w.line("0.0\t\t\t        ! Y_ErrThresh\t\t- Yaw error threshold. Turbine begins to yaw when it passes this. [rad^2 s]")
	w.line("0.0\t\t\t\t    ! Y_IPC_IntSat\t\t- Integrator saturation (maximum signal amplitude contribution to pitch from yaw-by-IPC), [rad]")
	w.line("1\t\t\t\t\t! Y_IPC_n\t\t\t- Number of controller gains (yaw-by-IPC)")
	w.line("0.0\t\t\t\t    ! Y_IPC_KP\t\t\t- Yaw-by-IPC proportional controller gain Kp")
	w.line("0.0\t\t\t\t    ! Y_IPC_KI\t\t\t- Yaw-by-IPC integral controller gain Ki")
	w.line("0.0\t\t\t        ! Y_IPC_omegaLP\t\t- Low-pass filter corner frequency for the Yaw-by-IPC controller to filtering the yaw alignment error, [rad/s].")
	w.line("0.0\t\t\t\t\t! Y_IPC_zetaLP\t\t- Low-pass filter damping factor for the Yaw-by-IPC controller to filtering the yaw alignment error, [-].")
	w.line("0.0\t\t\t        ! Y_MErrSet\t\t\t- Yaw alignment error, set point [rad]")
	w.line("0.0\t\t\t\t\t! Y_omegaLPFast\t\t- Corner frequency fast low pass filter, 1.0 [Hz]")
	w.line("0.0\t\t\t        ! Y_omegaLPSlow\t\t- Corner frequency slow low pass filter, 1/60 [Hz]")
	w.line("0.0\t\t\t        ! Y_Rate\t\t\t- Yaw rate [rad/s]")
	w.blank()
	w.line("!------- TOWER FORE-AFT DAMPING -------------------------------------------")
	w.line("-1\t\t\t\t\t! FA_KI\t\t\t\t- Integral gain for the fore-aft tower damper controller, -1 = off / >0 = on [rad s/m] - !NJA - Make this a flag")
	w.line("0.0                 ! FA_HPF_CornerFreq\t- Corner frequency (-3dB point) in the high-pass filter on the fore-aft acceleration signal [rad/s]")
	w.line("0.0\t\t\t        ! FA_IntSat\t\t\t- Integrator saturation (maximum signal amplitude contribution to pitch from FA damper), [rad]")
	w.blank()
	w.line("!------- PEAK SHAVING -------------------------------------------")
	w.linef("%s              ! PS_BldPitchMin_N  - Number of values in minimum blade pitch lookup table (should equal number of values in PS_WindSpeeds and PS_BldPitchMin)", count(len(r.PeakShaving.PitchMin)))
	w.linef("%s              ! PS_WindSpeeds       - Wind speeds corresponding to minimum blade pitch angles [m/s]", array(r.PeakShaving.V))
	w.linef("%s              ! PS_BldPitchMin          - Minimum blade pitch angles [rad]", array(r.PeakShaving.PitchMin))
	return bw.Flush()
}

// WriteFile writes the parameter file to path. The content is written to a
// temporary file in the same directory and renamed over path once complete,
// so a failed write never leaves a truncated parameter file behind.
func WriteFile(path string, in Input) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create parameter file %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to create parameter file %s: %w", path, err)
	}
	if err = Write(tmp, in); err != nil {
		return fmt.Errorf("failed to write parameter file %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write parameter file %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace parameter file %s: %w", path, err)
	}
	return nil
}
