package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	MirrorNone  = "none"
	MirrorAzure = "azure"
)

// LibrarySpec names one library whose version the diagnostics report
// includes. Any of Module, Package, Import or Native may be empty; the
// reporter only tries the lookups that have a key.
type LibrarySpec struct {
	Name    string `yaml:"name"`
	Module  string `yaml:"module,omitempty"`
	Package string `yaml:"package,omitempty"`
	Import  string `yaml:"import,omitempty"`
	Native  string `yaml:"native,omitempty"`
}

// Profile is the on-disk diagnostics profile referenced by DIAG_PROFILE.
type Profile struct {
	Python    string        `yaml:"python"`
	Libraries []LibrarySpec `yaml:"libraries"`
	Env       []string      `yaml:"env"`
}

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	OutputDir          string
	LogLevel           string

	// Diagnostics. Nil Libraries/EnvVars mean "use the built-in lists".
	Python      string
	EnvVars     []string
	Libraries   []LibrarySpec
	ProfilePath string

	MirrorBackend  string
	AzureAccount   string
	AzureKey       string
	AzureContainer string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// LoadFromEnv reads configuration from the process environment. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 64*1024*1024), // 64MB
		OutputDir:          getEnvOrDefault("OUTPUT_DIR", "./output"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		Python:             getEnvOrDefault("PYTHON_BIN", "python3"),
		EnvVars:            parseListOrNil("DIAG_ENV_VARS"),
		ProfilePath:        strings.TrimSpace(os.Getenv("DIAG_PROFILE")),
		MirrorBackend:      strings.ToLower(getEnvOrDefault("MIRROR_BACKEND", MirrorNone)),
		AzureAccount:       os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:           os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:     getEnvOrDefault("AZURE_STORAGE_CONTAINER", "artifacts"),
	}

	if cfg.ProfilePath != "" {
		if err := cfg.ApplyProfile(cfg.ProfilePath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", c.RequestTimeout)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	switch c.MirrorBackend {
	case MirrorNone:
	case MirrorAzure:
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("MIRROR_BACKEND=azure requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
	default:
		return fmt.Errorf("unsupported MIRROR_BACKEND: %q", c.MirrorBackend)
	}
	for i, lib := range c.Libraries {
		if strings.TrimSpace(lib.Name) == "" {
			return fmt.Errorf("library %d in profile has no name", i)
		}
	}
	return nil
}

// ApplyProfile overlays a YAML diagnostics profile onto the config. Fields
// absent from the file leave the current values untouched.
func (c *Config) ApplyProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read diagnostics profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("parse diagnostics profile %s: %w", path, err)
	}

	if profile.Python != "" {
		c.Python = profile.Python
	}
	if profile.Libraries != nil {
		c.Libraries = profile.Libraries
	}
	if profile.Env != nil {
		c.EnvVars = profile.Env
	}
	c.ProfilePath = path
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseListOrNil(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
