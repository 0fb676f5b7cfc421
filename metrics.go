package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"turbine-tuner/internal/tuning"
)

// Metrics holds the Prometheus metrics describing a tuning run
type Metrics struct {
	registry *prometheus.Registry

	// Operating point metrics
	OperatingPoints *prometheus.GaugeVec // Operating points per region
	PeakShaved      prometheus.Gauge     // Points with raised minimum pitch
	MaxThrust       prometheus.Gauge     // Unshaved peak rotor thrust
	ThrustCeiling   prometheus.Gauge     // Peak shaving thrust ceiling

	// Gain schedule metrics
	PitchKp *prometheus.GaugeVec // Pitch Kp range (min/max)
	PitchKi *prometheus.GaugeVec // Pitch Ki range (min/max)

	// Run metrics
	Saturations    *prometheus.CounterVec // Value substitutions by surface
	Warnings       prometheus.Counter     // Gain schedule warnings
	ErrorsTotal    *prometheus.CounterVec // Failures by stage
	TuningDuration prometheus.Histogram   // Tuning run time
}

// NewMetrics creates the tuning metrics on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		OperatingPoints: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turbine_tuner_operating_points",
				Help: "Number of operating points per control region",
			},
			[]string{"region"},
		),
		PeakShaved: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "turbine_tuner_peak_shaved_points",
				Help: "Operating points whose minimum pitch was raised by peak shaving",
			},
		),
		MaxThrust: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "turbine_tuner_max_thrust_newtons",
				Help: "Peak unshaved rotor thrust over the operating trajectory",
			},
		),
		ThrustCeiling: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "turbine_tuner_thrust_ceiling_newtons",
				Help: "Peak shaving rotor thrust ceiling",
			},
		),

		PitchKp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turbine_tuner_pitch_kp",
				Help: "Range of the pitch controller proportional gain schedule",
			},
			[]string{"bound"},
		),
		PitchKi: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turbine_tuner_pitch_ki",
				Help: "Range of the pitch controller integral gain schedule",
			},
			[]string{"bound"},
		),

		Saturations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turbine_tuner_saturations_total",
				Help: "Coefficient targets clamped onto the performance surface",
			},
			[]string{"surface"},
		),
		Warnings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "turbine_tuner_schedule_warnings_total",
				Help: "Gain schedule sanity check warnings",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turbine_tuner_errors_total",
				Help: "Total number of errors by stage",
			},
			[]string{"stage"},
		),
		TuningDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "turbine_tuner_tuning_duration_seconds",
				Help:    "Tuning run execution time in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0},
			},
		),
	}

	m.registry.MustRegister(
		m.OperatingPoints,
		m.PeakShaved,
		m.MaxThrust,
		m.ThrustCeiling,
		m.PitchKp,
		m.PitchKi,
		m.Saturations,
		m.Warnings,
		m.ErrorsTotal,
		m.TuningDuration,
	)
	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records the outcome of a tuning run
func (m *Metrics) Observe(r *tuning.Result, duration time.Duration) {
	t := r.Trajectory
	m.OperatingPoints.WithLabelValues("below_rated").Set(float64(t.NumBelowRated))
	m.OperatingPoints.WithLabelValues("above_rated").Set(float64(t.Len() - t.NumBelowRated))

	ps := r.PeakShaving
	m.PeakShaved.Set(float64(r.Diagnostics.Shaved))
	m.ThrustCeiling.Set(ps.TMax)
	var maxThrust float64
	for _, thrust := range ps.T {
		if thrust > maxThrust {
			maxThrust = thrust
		}
	}
	m.MaxThrust.Set(maxThrust)

	setRange(m.PitchKp, r.PitchGains.Kp)
	setRange(m.PitchKi, r.PitchGains.Ki)

	m.Saturations.WithLabelValues("cp").Add(float64(r.Diagnostics.CpSaturated))
	m.Saturations.WithLabelValues("ct").Add(float64(r.Diagnostics.CtClamped))
	m.Warnings.Add(float64(len(r.Diagnostics.Warnings)))
	m.TuningDuration.Observe(duration.Seconds())
}

func setRange(g *prometheus.GaugeVec, xs []float64) {
	if len(xs) == 0 {
		return
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	g.WithLabelValues("min").Set(lo)
	g.WithLabelValues("max").Set(hi)
}

// RecordError increments the error counter for the specified stage
func (m *Metrics) RecordError(stage string) {
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}

// WriteFile writes the metrics in the Prometheus text format, for pickup by
// the node exporter textfile collector
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}
