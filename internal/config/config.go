// Package config loads cpueff settings from a YAML file, the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aceteam-ai/cpueff/internal/catalog"
	"github.com/aceteam-ai/cpueff/internal/efficiency"
	"github.com/aceteam-ai/cpueff/internal/report"
	"github.com/aceteam-ai/cpueff/internal/sacct"
)

// FileName is the config file looked up in the config directory.
const FileName = "config.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CPUEFF_"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting the report run reads.
type Config struct {
	OutputDir string  `yaml:"output_dir"`
	Threshold float64 `yaml:"threshold"`
	Policy    string  `yaml:"policy"`
	SacctPath string  `yaml:"sacct_path"`
	ManPath   string  `yaml:"man_path"`
	Plot      bool    `yaml:"plot"`

	Catalog CatalogConfig `yaml:"catalog"`
	History HistoryConfig `yaml:"history"`
	Redis   RedisConfig   `yaml:"redis"`
}

// CatalogConfig selects where the field list comes from.
type CatalogConfig struct {
	Source string `yaml:"source"` // "man" or "helpformat"
}

// HistoryConfig controls the local run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RedisConfig controls summary publishing. An empty URL disables it.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Stream   string `yaml:"stream"`
}

// Default returns the built-in settings. configDir anchors the history
// database path.
func Default(configDir string) Config {
	return Config{
		OutputDir: ".",
		Threshold: report.DefaultThreshold,
		Policy:    efficiency.PrimaryStep.String(),
		SacctPath: sacct.DefaultProgram,
		ManPath:   "man",
		Catalog:   CatalogConfig{Source: string(catalog.SourceMan)},
		History:   HistoryConfig{Path: filepath.Join(configDir, "history.db")},
	}
}

// Load builds the effective config: defaults, then the YAML file, then
// CPUEFF_* environment variables. An empty path means configDir/config.yaml,
// which may be absent; an explicit path must exist.
func Load(path, configDir string) (*Config, error) {
	cfg := Default(configDir)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(configDir, FileName)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads the first .env file found among paths into the process
// environment. Variables already set are kept. It returns the loaded path.
func LoadDotEnv(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

// DotEnvPaths lists the .env candidates: the working directory, then the
// config directory.
func DotEnvPaths(configDir string) []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	return append(paths, filepath.Join(configDir, ".env"))
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalid, EnvPrefix, name, v)
		}
		*dst = b
		return nil
	}

	str("OUTPUT_DIR", &c.OutputDir)
	str("POLICY", &c.Policy)
	str("SACCT_PATH", &c.SacctPath)
	str("MAN_PATH", &c.ManPath)
	str("CATALOG_SOURCE", &c.Catalog.Source)
	str("HISTORY_PATH", &c.History.Path)
	str("REDIS_URL", &c.Redis.URL)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_STREAM", &c.Redis.Stream)

	if v, ok := lookup(EnvPrefix + "THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sTHRESHOLD=%q is not a number", ErrInvalid, EnvPrefix, v)
		}
		c.Threshold = f
	}
	if err := boolean("HISTORY_ENABLED", &c.History.Enabled); err != nil {
		return err
	}
	return boolean("PLOT", &c.Plot)
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) || c.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be a positive number, got %v", ErrInvalid, c.Threshold)
	}
	if _, err := efficiency.ParsePolicy(c.Policy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch catalog.Source(strings.ToLower(c.Catalog.Source)) {
	case catalog.SourceMan, catalog.SourceHelpFormat:
	default:
		return fmt.Errorf("%w: catalog.source must be %q or %q, got %q",
			ErrInvalid, catalog.SourceMan, catalog.SourceHelpFormat, c.Catalog.Source)
	}
	if c.SacctPath == "" {
		return fmt.Errorf("%w: sacct_path is empty", ErrInvalid)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("%w: history.path is empty", ErrInvalid)
	}
	return nil
}

// PolicyValue returns the parsed primary-record policy.
func (c *Config) PolicyValue() efficiency.Policy {
	p, _ := efficiency.ParsePolicy(c.Policy)
	return p
}

// CatalogSource returns the parsed catalog source.
func (c *Config) CatalogSource() catalog.Source {
	return catalog.Source(strings.ToLower(c.Catalog.Source))
}
