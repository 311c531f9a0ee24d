package config

// Config is the umbrella configuration object that encapsulates all
// sections of veritas.yaml plus resolved defaults. This is the primary
// object returned by Initialize() and threaded through the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	Defaults    *Defaults
	Scheduler   *SchedulerConfig
	Ranking     *RankingConfig
	RPC         *RPCConfig
	Providers   *ProvidersConfig
	Retention   *RetentionConfig
	Calibration *CalibrationConfig
	Extraction  *ExtractionConfig
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration, surfaced at
// startup for operators.
type ConfigStats struct {
	SchedulerWorkers int
	NetworkSlots     int
	Providers        int
	RPCEndpoints     int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		SchedulerWorkers: c.Scheduler.WorkerCount,
		NetworkSlots:     c.Scheduler.NetworkClientSlots,
		Providers:        len(c.Providers.Enabled),
		RPCEndpoints:     c.RPC.Stats(),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}
