package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces all environment variables
const EnvPrefix = "MEDCLEAN"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Features  FeaturesConfig  `yaml:"features" envconfig:"FEATURES"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RunTimeout      time.Duration   `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" validate:"gt=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console stdout file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR"`
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR"`
	CleanedDir   string `yaml:"cleaned_dir" envconfig:"CLEANED_DIR"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR"`
}

// PipelineConfig controls the cleaning and merge pipeline
type PipelineConfig struct {
	Datasets       []DatasetSpec     `yaml:"datasets" ignored:"true" validate:"min=1,dive"`
	StateRegions   map[string]string `yaml:"state_regions" ignored:"true"`
	JoinKey        string            `yaml:"join_key" envconfig:"JOIN_KEY" validate:"required"`
	ExportXLSX     bool              `yaml:"export_xlsx" envconfig:"EXPORT_XLSX"`
	BOMPrefix      bool              `yaml:"bom_prefix" envconfig:"BOM_PREFIX"`
	Sequential     bool              `yaml:"sequential" envconfig:"SEQUENTIAL"`
	KeepStaleFiles bool              `yaml:"keep_stale_files" envconfig:"KEEP_STALE_FILES"`
}

// FeaturesConfig controls model input preparation
type FeaturesConfig struct {
	Target       string   `yaml:"target" envconfig:"TARGET" validate:"required"`
	IDColumn     string   `yaml:"id_column" envconfig:"ID_COLUMN" validate:"required"`
	DropColumns  []string `yaml:"drop_columns" envconfig:"DROP_COLUMNS"`
	TestFraction float64  `yaml:"test_fraction" envconfig:"TEST_FRACTION" validate:"gt=0,lt=1"`
	Seed         int64    `yaml:"seed" envconfig:"SEED"`
}

// TelemetryConfig selects OpenTelemetry exporters
type TelemetryConfig struct {
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"omitempty,oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"omitempty,oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// StoreConfig selects the run history backend
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER" validate:"oneof=memory sqlite"`
	DSN    string `yaml:"dsn" envconfig:"DSN"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the first well-known location when path is empty), then environment
// variables prefixed with MEDCLEAN_. Later sources win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and normalizes logging settings
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	names := make(map[string]bool, len(c.Pipeline.Datasets))
	for _, ds := range c.Pipeline.Datasets {
		if names[ds.Name] {
			return fmt.Errorf("duplicate dataset name %q", ds.Name)
		}
		names[ds.Name] = true
	}

	// Logs are always JSON
	c.Logging.Format = "json"
	return nil
}

// Dataset returns the dataset spec with the given name
func (c *Config) Dataset(name string) (DatasetSpec, bool) {
	for _, ds := range c.Pipeline.Datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return DatasetSpec{}, false
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"medclean.yaml",
		"configs/medclean.yaml",
		"../configs/medclean.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      30 * time.Minute,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/medclean.log",
		},
		Paths: PathsConfig{
			DataDir: "data",
		},
		Pipeline: PipelineConfig{
			Datasets:     DefaultDatasets(),
			StateRegions: DefaultStateRegions(),
			JoinKey:      "provider_id",
		},
		Features: FeaturesConfig{
			Target:       "patient_experience_national_comparison",
			IDColumn:     "provider_id",
			DropColumns:  []string{"hospital_overall_rating"},
			TestFraction: 0.2,
			Seed:         42,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
			Environment:    "development",
		},
		Store: StoreConfig{
			Driver: "memory",
		},
	}
}
