package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/solrsync/internal/domain/document"
	"github.com/kailas-cloud/solrsync/internal/domain/document/field"
)

// Config holds the solrsync configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Solr     SolrConfig     `yaml:"solr"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Auth     AuthConfig     `yaml:"auth"`
	Schemas  []SchemaConfig `yaml:"schemas"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds primary store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	WriteTimeoutSec  int      `yaml:"write_timeout_sec"` // 0 keeps the client default
}

// SolrConfig holds search engine connection settings.
type SolrConfig struct {
	URL        string  `yaml:"url"`
	Core       string  `yaml:"core"`
	TimeoutSec int     `yaml:"timeout_sec"`
	RateLimit  float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst      int     `yaml:"burst"`
}

// IndexerConfig holds index writer and rebuild settings.
type IndexerConfig struct {
	FlushIntervalMs   int `yaml:"flush_interval_ms"` // 0 = flush on every write
	FlushTimeoutSec   int `yaml:"flush_timeout_sec"`
	MaxBatchSize      int `yaml:"max_batch_size"`
	RebuildBatchSize  int `yaml:"rebuild_batch_size"`
	RebuildLockTTLSec int `yaml:"rebuild_lock_ttl_sec"`
}

// SearchConfig holds pagination settings.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// SchemaConfig declares how one record type is indexed.
type SchemaConfig struct {
	Type           string        `yaml:"type"`
	IDStrategy     string        `yaml:"id_strategy"`       // type_pk (default), pk, uuid
	PlainFieldName bool          `yaml:"plain_field_names"` // disable _t/_s/... suffixes
	Fields         []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one indexed field.
type FieldConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	MultiValued bool   `yaml:"multi_valued"`
	Optional    bool   `yaml:"optional"`
	Default     any    `yaml:"default"`
	Expression  string `yaml:"expression"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Solr.TimeoutSec <= 0 {
		c.Solr.TimeoutSec = 10
	}
	if c.Indexer.FlushIntervalMs < 0 {
		c.Indexer.FlushIntervalMs = 0
	}
	if c.Indexer.FlushTimeoutSec <= 0 {
		c.Indexer.FlushTimeoutSec = 30
	}
	if c.Indexer.MaxBatchSize <= 0 {
		c.Indexer.MaxBatchSize = 100
	}
	if c.Indexer.RebuildBatchSize <= 0 {
		c.Indexer.RebuildBatchSize = 500
	}
	if c.Indexer.RebuildLockTTLSec <= 0 {
		c.Indexer.RebuildLockTTLSec = 3600
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Database.WriteTimeoutSec < 0 {
		return fmt.Errorf("database.write_timeout_sec must not be negative, got %d", c.Database.WriteTimeoutSec)
	}
	if c.Solr.URL == "" {
		return fmt.Errorf("solr.url is required")
	}
	if c.Solr.Core == "" {
		return fmt.Errorf("solr.core is required")
	}
	if c.Solr.RateLimit < 0 {
		return fmt.Errorf("solr.rate_limit must not be negative, got %g", c.Solr.RateLimit)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	if len(c.Schemas) == 0 {
		return fmt.Errorf("at least one schema is required")
	}
	if _, err := c.Mapper(); err != nil {
		return err
	}
	return nil
}

// Mapper builds the document mapper from the schema declarations.
func (c *Config) Mapper() (*document.Mapper, error) {
	schemas := make([]*document.Schema, 0, len(c.Schemas))
	for i, sc := range c.Schemas {
		s, err := sc.build()
		if err != nil {
			return nil, fmt.Errorf("schemas[%d]: %w", i, err)
		}
		schemas = append(schemas, s)
	}
	return document.NewMapper(schemas...)
}

func (sc SchemaConfig) build() (*document.Schema, error) {
	strategy, err := document.ParseIDStrategy(sc.IDStrategy)
	if err != nil {
		return nil, err
	}
	fields := make([]field.Field, 0, len(sc.Fields))
	for _, fc := range sc.Fields {
		ft, err := field.ParseType(fc.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fc.Name, err)
		}
		var opts []field.Option
		if fc.MultiValued {
			opts = append(opts, field.MultiValued())
		}
		if fc.Optional {
			opts = append(opts, field.Optional())
		}
		if fc.Default != nil {
			opts = append(opts, field.WithDefault(fc.Default))
		}
		if fc.Expression != "" {
			opts = append(opts, field.WithExpression(fc.Expression))
		}
		f, err := field.New(fc.Name, ft, opts...)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return document.NewSchema(sc.Type, strategy, !sc.PlainFieldName, fields)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
