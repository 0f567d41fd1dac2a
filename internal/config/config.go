package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/blueprint-parser/internal/blueprint"
	"github.com/ironsheep/blueprint-parser/internal/imaging"
	"github.com/ironsheep/blueprint-parser/internal/morphology"
	"github.com/ironsheep/blueprint-parser/internal/queue"
	"github.com/ironsheep/blueprint-parser/internal/storage"
)

// Default values for the configuration.
const (
	DefaultAddr            = ":8080"
	DefaultMaxUploadBytes  = 32 << 20
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 2 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
	DefaultKernelSize      = 3
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

// Environment variables that override file values.
const (
	EnvAddr       = "BLUEPRINT_ADDR"
	EnvLogLevel   = "BLUEPRINT_LOG_LEVEL"
	EnvStorageDir = "BLUEPRINT_STORAGE_DIR"
)

// Config is the full parser configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Output   OutputConfig   `yaml:"output"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// MaxUploadBytes caps the request body size.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PipelineConfig holds the defaults applied to requests that omit a
// parameter, and the consumer cadence.
type PipelineConfig struct {
	Threshold        float64       `yaml:"threshold"`
	ErodeIterations  int           `yaml:"erode_iterations"`
	DilateIterations int           `yaml:"dilate_iterations"`
	KernelSize       int           `yaml:"kernel_size"`
	Tick             time.Duration `yaml:"tick"`
	MaxDimension     int           `yaml:"max_dimension"`
}

// Kernel returns the square structuring element of KernelSize.
func (p PipelineConfig) Kernel() (*morphology.StructuringElement, error) {
	return morphology.Square(p.KernelSize)
}

// OutputConfig controls mask encoding.
type OutputConfig struct {
	Format      string `yaml:"format"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// StorageConfig controls upload persistence.
type StorageConfig struct {
	// Dir is the upload directory. Empty disables storage.
	Dir string `yaml:"dir"`

	// CachePixels bounds the decoded-upload cache. Zero disables it.
	CachePixels int `yaml:"cache_pixels"`
}

// Enabled reports whether uploads are persisted.
func (s StorageConfig) Enabled() bool { return s.Dir != "" }

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			MaxUploadBytes:  DefaultMaxUploadBytes,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Pipeline: PipelineConfig{
			Threshold:        blueprint.DefaultThreshold,
			ErodeIterations:  blueprint.DefaultErodeIterations,
			DilateIterations: blueprint.DefaultDilateIterations,
			KernelSize:       DefaultKernelSize,
			Tick:             queue.DefaultTick,
		},
		Output: OutputConfig{
			Format:      string(imaging.JPEG),
			JPEGQuality: imaging.DefaultJPEGQuality,
		},
		Storage: StorageConfig{
			CachePixels: storage.DefaultCachePixels,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads the config file at path. An empty path or a missing file yields
// the defaults. Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse yaml: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvStorageDir); v != "" {
		cfg.Storage.Dir = v
	}
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if c.Pipeline.ErodeIterations < 0 {
		return fmt.Errorf("pipeline.erode_iterations must not be negative")
	}
	if c.Pipeline.DilateIterations < 0 {
		return fmt.Errorf("pipeline.dilate_iterations must not be negative")
	}
	if _, err := c.Pipeline.Kernel(); err != nil {
		return fmt.Errorf("pipeline.kernel_size %d: %w", c.Pipeline.KernelSize, err)
	}
	if c.Pipeline.Tick <= 0 {
		return fmt.Errorf("pipeline.tick must be positive")
	}
	if c.Pipeline.MaxDimension < 0 {
		return fmt.Errorf("pipeline.max_dimension must not be negative")
	}
	if _, err := imaging.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality %d is out of range [1, 100]", c.Output.JPEGQuality)
	}
	if c.Storage.CachePixels < 0 {
		return fmt.Errorf("storage.cache_pixels must not be negative")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q unknown: want json|console", c.Log.Format)
	}
	return nil
}
