package config

import (
	"os"
	"runtime"
	"strconv"

	"epinet/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig
	Output     OutputConfig
	Database   DatabaseConfig
	Server     ServerConfig
	Profiling  ProfilingConfig
}

// SimulationConfig holds Monte-Carlo defaults
type SimulationConfig struct {
	Trials      int
	MasterSeed  uint64
	Workers     int
	PresetsFile string
}

// OutputConfig holds result destinations; empty paths disable a sink
type OutputConfig struct {
	CSVPath   string
	XLSXPath  string
	ReportDir string
}

// DatabaseConfig holds database connection settings. Persistence is optional.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a database was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// ProfilingConfig holds the admin/pprof listener settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	simConfig, err := loadSimulationConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load simulation configuration")
	}
	config.Simulation = *simConfig

	config.Output = *loadOutputConfig()
	config.Database = DatabaseConfig{URL: os.Getenv("DATABASE_URL")}
	config.Server = *loadServerConfig()
	config.Profiling = *loadProfilingConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadSimulationConfig() (*SimulationConfig, error) {
	seed, err := getEnvUint64OrDefault("SIM_SEED", 25359)
	if err != nil {
		return nil, err
	}
	workers := getEnvIntOrDefault("SIM_WORKERS", 0)
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return &SimulationConfig{
		Trials:      getEnvIntOrDefault("SIM_TRIALS", 1000),
		MasterSeed:  seed,
		Workers:     workers,
		PresetsFile: getEnvOrDefault("SIM_PRESETS", ""),
	}, nil
}

func loadOutputConfig() *OutputConfig {
	return &OutputConfig{
		CSVPath:   getEnvOrDefault("RESULTS_CSV", "results.csv"),
		XLSXPath:  getEnvOrDefault("RESULTS_XLSX", ""),
		ReportDir: getEnvOrDefault("REPORT_DIR", ""),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if config.Simulation.Trials < 1 {
		return errors.ConfigInvalid("SIM_TRIALS must be at least 1")
	}
	if config.Simulation.Workers < 0 {
		return errors.ConfigInvalid("SIM_WORKERS must not be negative")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Unlike the other helpers a malformed value is an error, not the default
func getEnvUint64OrDefault(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an unsigned integer")
	}
	return parsed, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
