package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"turbine-tuner/internal/discon"
	"turbine-tuner/internal/surface"
	"turbine-tuner/internal/tuning"
	"turbine-tuner/internal/turbine"
)

var (
	// CLI flags
	configPath  = flag.String("config", "tuning.yaml", "Path to configuration file")
	outPath     = flag.String("out", "", "Override the parameter file path")
	logLevel    = flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	metricsPath = flag.String("metrics-file", "", "Override the Prometheus metrics textfile path")
	dryRun      = flag.Bool("dry-run", false, "Tune and report without writing any files")
	dateFlag    = flag.String("date", "", "Date written to the parameter file header (YYYY-MM-DD), defaults to today")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Apply flag overrides
	if *logLevel != "" {
		config.Logging.Level = *logLevel
	}
	if *outPath != "" {
		config.Output.ParamFile = *outPath
	}
	if *metricsPath != "" {
		config.Output.MetricsFile = *metricsPath
	}

	logger, err := NewLogger(config.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	date := time.Now()
	if *dateFlag != "" {
		if date, err = time.Parse("2006-01-02", *dateFlag); err != nil {
			logger.Fatal("Invalid -date", zap.Error(err))
		}
	}

	logger.Info("Starting controller tuning",
		zap.String("config", *configPath),
		zap.String("turbine", config.Turbine.Name))

	metrics := NewMetrics()
	err = run(config, filepath.Dir(*configPath), date, metrics, logger)

	if config.Output.MetricsFile != "" && !*dryRun {
		if werr := metrics.WriteFile(config.Output.MetricsFile); werr != nil {
			logger.Error("Failed to write metrics", zap.Error(werr))
		}
	}
	if err != nil {
		logger.Fatal("Controller tuning failed", zap.Error(err))
	}
}

// run loads the turbine, tunes the controller and writes the results
func run(config *Config, baseDir string, date time.Time, metrics *Metrics, logger *zap.Logger) error {
	model, perf, err := turbine.Load(config.Turbine, baseDir)
	if err != nil {
		metrics.RecordError("load")
		return err
	}

	start := time.Now()
	result, err := tuning.Tune(model, config.Controller, logger)
	if err != nil {
		metrics.RecordError("tune")
		return err
	}
	metrics.Observe(result, time.Since(start))
	logSummary(logger, result)

	if *dryRun {
		logger.Info("Dry run, not writing parameter file")
		return nil
	}

	in := discon.Input{
		Turbine:       config.Turbine,
		Result:        result,
		PerfFileName:  config.Output.PerfFileName,
		PerfTableSize: [2]int{len(model.Cp.PitchGrid()), len(model.Cp.TSRGrid())},
		Date:          date,
	}
	if err := discon.WriteFile(config.Output.ParamFile, in); err != nil {
		metrics.RecordError("write")
		return err
	}
	logger.Info("Wrote parameter file", zap.String("path", config.Output.ParamFile))

	if config.Output.WritePerf {
		path := filepath.Join(filepath.Dir(config.Output.ParamFile), config.Output.PerfFileName)
		if err := writePerformance(path, config.Turbine.Name, perf); err != nil {
			metrics.RecordError("write")
			return err
		}
		logger.Info("Wrote performance tables", zap.String("path", path))
	}
	return nil
}

func writePerformance(path, name string, perf *surface.Performance) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create performance file %s: %w", path, err)
	}
	if err := surface.WritePerformanceFile(f, name, perf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write performance file %s: %w", path, err)
	}
	return f.Close()
}

// logSummary logs the tuned schedules and any substitutions made on the way
func logSummary(logger *zap.Logger, r *tuning.Result) {
	vsKp, vsKi := r.TorqueGains.Last()
	logger.Info("Tuning summary",
		zap.Int("operating_points", r.Trajectory.Len()),
		zap.Int("pitch_schedule", r.PitchGains.Len()),
		zap.Float64("vs_kp", vsKp),
		zap.Float64("vs_ki", vsKi),
		zap.Float64("vs_rgn2k", r.VSRgn2K),
		zap.Int("cp_saturated", r.Diagnostics.CpSaturated),
		zap.Int("ct_clamped", r.Diagnostics.CtClamped),
		zap.Int("peak_shaved", r.Diagnostics.Shaved))
	for _, w := range r.Diagnostics.Warnings {
		logger.Warn("Gain schedule check", zap.String("warning", w))
	}
}
