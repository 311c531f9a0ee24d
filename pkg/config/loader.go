package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// VeritasYAMLConfig represents the complete veritas.yaml file structure.
type VeritasYAMLConfig struct {
	Defaults    *Defaults           `yaml:"defaults"`
	Scheduler   *SchedulerConfig    `yaml:"scheduler"`
	Ranking     *RankingConfig      `yaml:"ranking"`
	RPC         *RPCConfig          `yaml:"rpc"`
	Providers   *ProvidersConfig    `yaml:"providers"`
	Retention   *RetentionConfig    `yaml:"retention"`
	Calibration *CalibrationConfig `yaml:"calibration"`
	Extraction  *ExtractionConfig  `yaml:"extraction"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load veritas.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user-defined sections onto built-in defaults
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"scheduler_workers", stats.SchedulerWorkers,
		"network_slots", stats.NetworkSlots,
		"providers", stats.Providers,
		"rpc_endpoints", stats.RPCEndpoints)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	user, err := loader.loadVeritasYAML()
	if err != nil {
		return nil, NewLoadError("veritas.yaml", err)
	}

	scheduler, err := mergeSection(DefaultSchedulerConfig(), user.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("failed to merge scheduler config: %w", err)
	}
	ranking, err := mergeSection(DefaultRankingConfig(), user.Ranking)
	if err != nil {
		return nil, fmt.Errorf("failed to merge ranking config: %w", err)
	}
	rpc, err := mergeSection(DefaultRPCConfig(), user.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to merge rpc config: %w", err)
	}
	providers, err := mergeSection(DefaultProvidersConfig(), user.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to merge providers config: %w", err)
	}
	retention, err := mergeSection(DefaultRetentionConfig(), user.Retention)
	if err != nil {
		return nil, fmt.Errorf("failed to merge retention config: %w", err)
	}
	calibration, err := mergeSection(DefaultCalibrationConfig(), user.Calibration)
	if err != nil {
		return nil, fmt.Errorf("failed to merge calibration config: %w", err)
	}
	defaults, err := mergeSection(DefaultDefaults(), user.Defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to merge defaults: %w", err)
	}
	extraction, err := mergeSection(DefaultExtractionConfig(), user.Extraction)
	if err != nil {
		return nil, fmt.Errorf("failed to merge extraction config: %w", err)
	}

	return &Config{
		configDir:   configDir,
		Defaults:    defaults,
		Scheduler:   scheduler,
		Ranking:     ranking,
		RPC:         rpc,
		Providers:   providers,
		Retention:   retention,
		Calibration: calibration,
		Extraction:  extraction,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables (shell-style ${VAR}/$VAR). Missing
	// variables expand to empty string; validation catches required
	// fields left empty.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadVeritasYAML() (*VeritasYAMLConfig, error) {
	var cfg VeritasYAMLConfig
	if err := l.loadYAML("veritas.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
