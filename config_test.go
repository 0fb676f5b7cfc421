package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turbine-tuner/internal/discon"
	"turbine-tuner/internal/tuning"
)

const validTurbine = `
turbine:
  name: Example
  performance_file: Cp_Ct_Cq.example.txt
  J: 38759228.0
  rho: 1.225
  rotor_radius: 63.0
  Ng: 97.0
  rated_rotor_speed: 1.2671
  v_min: 3.0
  v_rated: 11.4
  v_max: 25.0
  rated_torque: 43093.55
  rated_power: 5000000.0
  max_pitch_rate: 0.1745
  max_torque_rate: 1500000.0
  gen_eff: 0.944
  bld_edgewise_freq: 4.0
`

const validController = `
controller:
  zeta_pc: 0.7
  omega_pc: 0.6
  zeta_vs: 0.7
  omega_vs: 0.3
`

// TestLoadConfig_ValidFile tests loading a valid configuration file
func TestLoadConfig_ValidFile(t *testing.T) {
	// Act
	config, err := LoadConfig(filepath.Join("testdata", "tuning.yaml"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "Example", config.Turbine.Name)
	assert.Equal(t, 38759228.0, config.Turbine.J)
	assert.Equal(t, 97.0, config.Turbine.Ng)
	assert.Equal(t, 11.4, config.Turbine.VRated)
	assert.Equal(t, 0.944, config.Turbine.GenEff)
	assert.Equal(t, 0.7, config.Controller.ZetaPC)
	assert.Equal(t, 0.3, config.Controller.OmegaVS)
	require.NotNil(t, config.Controller.MinPitch)
	assert.Equal(t, 0.0, *config.Controller.MinPitch)
	require.NotNil(t, config.Controller.Flags.PSMode)
	assert.Equal(t, 1, *config.Controller.Flags.PSMode)
	assert.Equal(t, "DISCON.IN", config.Output.ParamFile)
	assert.Equal(t, "Cp_Ct_Cq.example.txt", config.Output.PerfFileName)
	assert.False(t, config.Output.WritePerf)
}

// TestLoadConfig_InvalidYAML tests loading a file with invalid YAML
func TestLoadConfig_InvalidYAML(t *testing.T) {
	// Arrange
	content := `
turbine:
  name: Example
  invalid yaml here: [unclosed
`
	tmpFile := createTempConfig(t, content)

	// Act
	_, err := LoadConfig(tmpFile)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// TestLoadConfig_MissingFile tests loading a non-existent file
func TestLoadConfig_MissingFile(t *testing.T) {
	// Act
	_, err := LoadConfig("/nonexistent/path/config.yaml")

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestLoadConfig_PartialConfig_UsesDefaults tests that missing values get defaults
func TestLoadConfig_PartialConfig_UsesDefaults(t *testing.T) {
	// Arrange
	content := strings.Replace(validTurbine, "  rho: 1.225\n", "", 1)
	content = strings.Replace(content, "  gen_eff: 0.944\n", "", 1)
	tmpFile := createTempConfig(t, content+validController)

	// Act
	config, err := LoadConfig(tmpFile)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 1.225, config.Turbine.Rho)
	assert.Equal(t, 1.0, config.Turbine.GenEff)
	assert.Equal(t, "DISCON.IN", config.Output.ParamFile)
	assert.Equal(t, discon.DefaultPerfFileName, config.Output.PerfFileName)
	assert.Empty(t, config.Output.MetricsFile)
	assert.Nil(t, config.Controller.MinPitch, "controller defaults are applied on resolve")
}

// TestSetDefaults_EmptyConfig tests defaults on an empty configuration
func TestSetDefaults_EmptyConfig(t *testing.T) {
	// Arrange
	config := &Config{}

	// Act
	setDefaults(config)

	// Assert
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 1.225, config.Turbine.Rho)
	assert.Equal(t, 1.0, config.Turbine.GenEff)
	assert.Equal(t, "DISCON.IN", config.Output.ParamFile)
	assert.Equal(t, discon.DefaultPerfFileName, config.Output.PerfFileName)
}

// TestSetDefaults_AllFieldsSet tests that set values are kept
func TestSetDefaults_AllFieldsSet(t *testing.T) {
	// Arrange
	config := &Config{
		Logging: LoggingConfig{Level: "debug"},
		Output: OutputConfig{
			ParamFile:    "out/DISCON_Example.IN",
			PerfFileName: "Example_Cp_Ct_Cq.txt",
		},
	}
	config.Turbine.Rho = 1.1
	config.Turbine.GenEff = 0.95

	// Act
	setDefaults(config)

	// Assert
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 1.1, config.Turbine.Rho)
	assert.Equal(t, 0.95, config.Turbine.GenEff)
	assert.Equal(t, "out/DISCON_Example.IN", config.Output.ParamFile)
	assert.Equal(t, "Example_Cp_Ct_Cq.txt", config.Output.PerfFileName)
}

// TestValidate_Errors tests rejection of invalid configurations
func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing performance file",
			content: strings.Replace(validTurbine, "  performance_file: Cp_Ct_Cq.example.txt\n", "", 1) + validController,
			want:    "performance_file is required",
		},
		{
			name:    "rated above cut-out",
			content: strings.Replace(validTurbine, "v_max: 25.0", "v_max: 10.0", 1) + validController,
			want:    "v_rated",
		},
		{
			name:    "missing controller targets",
			content: validTurbine,
			want:    "zeta_pc must be positive",
		},
		{
			name:    "peak shaving fraction out of range",
			content: validTurbine + validController + "  ps_percent: 1.5\n",
			want:    "ps_percent",
		},
		{
			name:    "unknown log level",
			content: "logging:\n  level: verbose\n" + validTurbine + validController,
			want:    "log_level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			tmpFile := createTempConfig(t, tt.content)

			// Act
			_, err := LoadConfig(tmpFile)

			// Assert
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestValidate_ExplicitZeroMinPitch tests that a zero minimum pitch is accepted
func TestValidate_ExplicitZeroMinPitch(t *testing.T) {
	// Arrange
	tmpFile := createTempConfig(t, validTurbine+validController+"  min_pitch: 0.0\n  max_pitch: 0.5\n")

	// Act
	config, err := LoadConfig(tmpFile)

	// Assert
	require.NoError(t, err)
	settings, err := config.Controller.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 0.0, settings.MinPitch)
	assert.Equal(t, 0.5, settings.MaxPitch)
	assert.Equal(t, tuning.DefaultPSPercent, settings.PSPercent)
}

// Helper function to create temporary config files
func createTempConfig(t *testing.T, content string) string {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(tmpFile, []byte(strings.TrimSpace(content)), 0644)
	require.NoError(t, err)
	return tmpFile
}
