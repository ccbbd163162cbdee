package service

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8080
	DefaultMetricsPort = 7300
	DefaultCacheSize   = 64
)

// Config is the report server configuration, read from YAML or TOML
type Config struct {
	Host       string `yaml:"host" toml:"host"`
	Port       int    `yaml:"port" toml:"port"`
	ReportsDir string `yaml:"reports_dir" toml:"reports_dir"`

	// CacheSize bounds the number of decoded reports kept in memory
	CacheSize int `yaml:"cache_size" toml:"cache_size"`
	// AllowPartial lets incomplete multitest part sets merge
	AllowPartial bool `yaml:"allow_partial" toml:"allow_partial"`
	// PendingAssertions treats testcases without assertions as not loaded
	PendingAssertions bool `yaml:"pending_assertions" toml:"pending_assertions"`

	CORSOrigins []string `yaml:"cors_origins" toml:"cors_origins"`

	Attachments AttachmentsConfig `yaml:"attachments" toml:"attachments"`
	Metrics     MetricsConfig     `yaml:"metrics" toml:"metrics"`
}

type AttachmentsConfig struct {
	// URL of a remote report server; empty reads attachments from ReportsDir
	URL         string        `yaml:"url" toml:"url"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
	Concurrency int           `yaml:"concurrency" toml:"concurrency"`
	Strict      bool          `yaml:"strict" toml:"strict"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Host    string `yaml:"host" toml:"host"`
	Port    int    `yaml:"port" toml:"port"`
}

// DefaultConfig returns a configuration serving reports from dir
func DefaultConfig(dir string) *Config {
	return &Config{
		Host:       DefaultHost,
		Port:       DefaultPort,
		ReportsDir: dir,
		CacheSize:  DefaultCacheSize,
		CORSOrigins: []string{
			"*",
		},
		Metrics: MetricsConfig{
			Host: DefaultHost,
			Port: DefaultMetricsPort,
		},
	}
}

// ReadConfig reads a configuration file, choosing the decoder by extension.
// Unset fields keep their defaults.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	config := DefaultConfig("")
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", path)
		}
	default:
		return nil, errors.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if config.ReportsDir != "" && !filepath.IsAbs(config.ReportsDir) {
		config.ReportsDir = filepath.Join(filepath.Dir(path), config.ReportsDir)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.ReportsDir == "" {
		return errors.New("reports_dir is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.CacheSize <= 0 {
		return errors.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return errors.Errorf("invalid metrics port %d", c.Metrics.Port)
	}
	if c.Attachments.Concurrency < 0 {
		return errors.Errorf("attachments concurrency must not be negative, got %d", c.Attachments.Concurrency)
	}
	return nil
}
