package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-visa-intake/internal/country"
)

const (
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort             = 8080
	DefaultHost             = "127.0.0.1"
	DefaultLogLevel         = "info"
	DefaultMaxFileSize      = 50 * 1024 * 1024 // 50MB
	DefaultBackendTimeout   = 45 * time.Second
	DefaultMediumConfidence = 70
	DefaultFillSuccessRatio = 0.5
	DefaultBatchConcurrency = 4

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "VISA_INTAKE"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is on the command line
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the visa intake server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Documents are read from and filled forms written to this directory
	DocumentDirectory string
	MaxFileSize       int64

	// External backends. An empty URL disables the backend.
	StructuredURL  string
	IDDocumentURL  string
	VisionURL      string
	SemanticURL    string
	APIKey         string
	BackendTimeout time.Duration

	// Pipeline tuning
	MediumConfidence   int
	FillSuccessRatio   float64
	BatchConcurrency   int
	RulesFile          string
	DestinationCountry string

	// Reported by visa_server_info and /health
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig serves stdio from the working directory with no backends configured
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:               ModeStdio,
		Host:               DefaultHost,
		Port:               DefaultPort,
		DocumentDirectory:  currentDir,
		MaxFileSize:        DefaultMaxFileSize,
		BackendTimeout:     DefaultBackendTimeout,
		MediumConfidence:   DefaultMediumConfidence,
		FillSuccessRatio:   DefaultFillSuccessRatio,
		BatchConcurrency:   DefaultBatchConcurrency,
		Version:            "0.1.0",
		ServerName:         "mcp-visa-intake",
		LogLevel:           DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and environment variables and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.DocumentDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.DocumentDirectory); err == nil {
			cfg.DocumentDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flagKeys lists every key shared by flags, viper and the environment
var flagKeys = []string{
	"mode", "host", "port", "dir", "log-level", "max-file-size",
	"structured-url", "id-url", "vision-url", "semantic-url", "api-key", "backend-timeout",
	"medium-confidence", "fill-ratio", "batch-concurrency", "rules-file", "destination",
}

// setupViperEnvironment configures viper with environment variables and defaults.
// Dashes in keys become underscores, so "api-key" reads VISA_INTAKE_API_KEY.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.DocumentDirectory)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("backend-timeout", cfg.BackendTimeout)
	viper.SetDefault("medium-confidence", cfg.MediumConfidence)
	viper.SetDefault("fill-ratio", cfg.FillSuccessRatio)
	viper.SetDefault("batch-concurrency", cfg.BatchConcurrency)
	viper.SetDefault("destination", cfg.DestinationCountry)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.DocumentDirectory, "Directory holding scanned documents and form templates")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum document size in bytes")

	pflag.String("structured-url", cfg.StructuredURL, "Structured layout extraction endpoint")
	pflag.String("id-url", cfg.IDDocumentURL, "ID document extraction endpoint")
	pflag.String("vision-url", cfg.VisionURL, "Vision model extraction endpoint")
	pflag.String("semantic-url", cfg.SemanticURL, "Semantic validator endpoint (optional)")
	pflag.String("api-key", cfg.APIKey, "Bearer token sent to every backend")
	pflag.Duration("backend-timeout", cfg.BackendTimeout, "Timeout for a single backend call")

	pflag.Int("medium-confidence", cfg.MediumConfidence,
		"Structured extraction confidence a medium quality document must reach")
	pflag.Float64("fill-ratio", cfg.FillSuccessRatio,
		"Share of requested form fields that must be written for a fill to succeed")
	pflag.Int("batch-concurrency", cfg.BatchConcurrency, "Documents processed at once in a batch")
	pflag.String("rules-file", cfg.RulesFile, "YAML file with extra validation rules")
	pflag.String("destination", cfg.DestinationCountry, "Default destination country (ISO alpha-3)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nVisa Intake - an MCP server that extracts, validates and routes visa documents\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/intake --vision-url=http://vision:9000/extract\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 --destination=ARE\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range flagKeys {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", envPrefix, strings.ToUpper(strings.ReplaceAll(key, "-", "_")))
		}
	}
}

func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.DocumentDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")

	cfg.StructuredURL = viper.GetString("structured-url")
	cfg.IDDocumentURL = viper.GetString("id-url")
	cfg.VisionURL = viper.GetString("vision-url")
	cfg.SemanticURL = viper.GetString("semantic-url")
	cfg.APIKey = viper.GetString("api-key")
	cfg.BackendTimeout = viper.GetDuration("backend-timeout")

	cfg.MediumConfidence = viper.GetInt("medium-confidence")
	cfg.FillSuccessRatio = viper.GetFloat64("fill-ratio")
	cfg.BatchConcurrency = viper.GetInt("batch-concurrency")
	cfg.RulesFile = viper.GetString("rules-file")
	cfg.DestinationCountry = strings.ToUpper(strings.TrimSpace(viper.GetString("destination")))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.DocumentDirectory == "" {
		return errors.New("document directory cannot be empty")
	}
	if _, err := os.Stat(c.DocumentDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.DocumentDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create document directory %s: %w", c.DocumentDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access document directory %s: %w", c.DocumentDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.BackendTimeout <= 0 {
		return errors.New("backend timeout must be positive")
	}
	if c.MediumConfidence < 0 || c.MediumConfidence > 100 {
		return fmt.Errorf("medium confidence must be between 0 and 100, got %d", c.MediumConfidence)
	}
	if c.FillSuccessRatio <= 0 || c.FillSuccessRatio > 1 {
		return fmt.Errorf("fill ratio must be in (0, 1], got %g", c.FillSuccessRatio)
	}
	if c.BatchConcurrency < 1 {
		return errors.New("batch concurrency must be at least 1")
	}
	if c.DestinationCountry != "" && !country.Known(c.DestinationCountry) {
		return fmt.Errorf("unknown destination country %q", c.DestinationCountry)
	}
	if c.RulesFile != "" {
		if _, err := os.Stat(c.RulesFile); err != nil {
			return fmt.Errorf("cannot read rules file %s: %w", c.RulesFile, err)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// HasBackends reports whether at least one extraction backend is configured
func (c *Config) HasBackends() bool {
	return c.StructuredURL != "" || c.IDDocumentURL != "" || c.VisionURL != ""
}

// String returns a string representation of the configuration. The API key is never printed.
func (c *Config) String() string {
	key := ""
	if c.APIKey != "" {
		key = "***"
	}
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DocumentDirectory: %s, LogLevel: %s, "+
		"MaxFileSize: %d, StructuredURL: %s, IDDocumentURL: %s, VisionURL: %s, SemanticURL: %s, APIKey: %s}",
		c.Mode, c.Host, c.Port, c.DocumentDirectory, c.LogLevel,
		c.MaxFileSize, c.StructuredURL, c.IDDocumentURL, c.VisionURL, c.SemanticURL, key)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
