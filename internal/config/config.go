package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "LINGOBAR"

// Config represents the complete agent configuration
type Config struct {
	Trial     TrialConfig     `yaml:"trial" envconfig:"TRIAL"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// TrialConfig controls the trial period. Release builds pin LengthDays to
// DefaultTrialLengthDays.
type TrialConfig struct {
	LengthDays int `yaml:"length_days" envconfig:"LENGTH_DAYS"`
}

// LicenseConfig contains the remote activation settings
type LicenseConfig struct {
	ActivationURL string        `yaml:"activation_url" envconfig:"ACTIVATION_URL"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	RateBurst     int           `yaml:"rate_burst" envconfig:"RATE_BURST"`
	RateInterval  time.Duration `yaml:"rate_interval" envconfig:"RATE_INTERVAL"`
}

// StoreConfig selects and configures the secure key-value backend. Release
// builds pin Bundle to DefaultBundleID and reject the memory backend.
type StoreConfig struct {
	Backend  string `yaml:"backend" envconfig:"BACKEND"` // keyring, file, memory (debug only)
	Bundle   string `yaml:"bundle" envconfig:"BUNDLE"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// LicenseNamespace is the keystore namespace holding trial and license entries.
func (s StoreConfig) LicenseNamespace() string {
	return s.Bundle + ".license"
}

// APIKeysNamespace is the keystore namespace holding third-party API keys.
func (s StoreConfig) APIKeysNamespace() string {
	return s.Bundle + ".api-keys"
}

// ServerConfig contains the loopback HTTP API configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // console, file, both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig toggles OpenTelemetry providers
type TelemetryConfig struct {
	Metrics       bool   `yaml:"metrics" envconfig:"METRICS"`
	Tracing       bool   `yaml:"tracing" envconfig:"TRACING"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"` // stdout, none
	Environment   string `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// No default tags on the struct: unset variables leave file and default values alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.pinBuildSettings()

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths fills empty file locations from the per-user data directory
func (c *Config) resolvePaths() error {
	if c.Store.FilePath != "" && c.Logging.FilePath != "" {
		return nil
	}

	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	if c.Store.FilePath == "" {
		c.Store.FilePath = paths.StoreFile
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = paths.LogFile
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Trial.LengthDays <= 0 {
		return fmt.Errorf("trial length must be positive: %d", c.Trial.LengthDays)
	}

	u, err := url.Parse(c.License.ActivationURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("invalid license activation url: %q", c.License.ActivationURL)
	}

	if c.License.Timeout <= 0 || c.License.Timeout > MaxActivationTimeout {
		return fmt.Errorf("license timeout must be within (0, %s]: %s", MaxActivationTimeout, c.License.Timeout)
	}

	if c.License.RateBurst <= 0 || c.License.RateInterval <= 0 {
		return fmt.Errorf("license rate limit must be positive")
	}

	switch c.Store.Backend {
	case StoreBackendKeyring, StoreBackendFile:
	case StoreBackendMemory:
		if !DebugBuild {
			return fmt.Errorf("store backend %q is only available in debug builds", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}

	if strings.TrimSpace(c.Store.Bundle) == "" {
		return fmt.Errorf("store bundle must not be empty")
	}

	if err := validateLoopback(c.Server.Addr); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	return nil
}

// validateLoopback rejects listen addresses reachable from other machines
func validateLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid server address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("server address must be loopback: %q", addr)
	}
	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	locations := []string{"lingobar.yaml"}
	if paths, err := GetPaths(); err == nil {
		locations = append(locations, filepath.Join(paths.DataDir, "config.yaml"))
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
		Trial: TrialConfig{
			LengthDays: DefaultTrialLengthDays,
		},
		License: LicenseConfig{
			ActivationURL: DefaultActivationURL,
			Timeout:       DefaultActivationTimeout,
			RateBurst:     3,
			RateInterval:  2 * time.Second,
		},
		Store: StoreConfig{
			Backend: StoreBackendKeyring,
			Bundle:  DefaultBundleID,
		},
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "console",
		},
		Telemetry: TelemetryConfig{
			Metrics:       true,
			Tracing:       false,
			TraceExporter: "none",
			Environment:   "production",
		},
	}
}
