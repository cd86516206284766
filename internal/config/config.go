// Package config resolves run settings. Values come from defaults, then an
// optional YAML file, then BRC_* environment variables. main applies command
// line flags last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Input        string `yaml:"input"`
	Stations     string `yaml:"stations"`
	Rows         int64  `yaml:"rows"`
	Workers      int    `yaml:"workers"`
	BufferSize   int    `yaml:"buffer_size"`
	MaxKeyLen    int    `yaml:"max_key_len"`
	ReduceShards int    `yaml:"reduce_shards"`
	Strict       bool   `yaml:"strict"`
	Seed         uint64 `yaml:"seed"`
	LogLevel     string `yaml:"log_level"`
	ProfileDir   string `yaml:"profile_dir"`
}

// Default leaves Workers at zero so that each pipeline picks its own pool
// size.
func Default() Config {
	return Config{
		Input:      "data.txt",
		Stations:   "weather_stations.csv",
		Rows:       1_000_000_000,
		BufferSize: 4 << 20,
		MaxKeyLen:  100,
		LogLevel:   "info",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Input = getenv("BRC_INPUT", c.Input)
	c.Stations = getenv("BRC_STATIONS", c.Stations)
	c.LogLevel = getenv("BRC_LOG_LEVEL", c.LogLevel)
	c.ProfileDir = getenv("BRC_PROFILE_DIR", c.ProfileDir)

	var err error
	if c.Rows, err = envInt("BRC_ROWS", c.Rows); err != nil {
		return err
	}
	if c.Seed, err = envUint("BRC_SEED", c.Seed); err != nil {
		return err
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"BRC_WORKERS", &c.Workers},
		{"BRC_BUFFER_SIZE", &c.BufferSize},
		{"BRC_MAX_KEY_LEN", &c.MaxKeyLen},
		{"BRC_REDUCE_SHARDS", &c.ReduceShards},
	}
	for _, e := range ints {
		v, err := envInt(e.key, int64(*e.dst))
		if err != nil {
			return err
		}
		*e.dst = int(v)
	}
	if v := os.Getenv("BRC_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BRC_STRICT: %w", err)
		}
		c.Strict = b
	}
	return nil
}

// Validate rejects settings no run could use.
func (c Config) Validate() error {
	var errs []error
	if c.Input == "" {
		errs = append(errs, errors.New("input path is empty"))
	}
	if c.Rows < 0 {
		errs = append(errs, fmt.Errorf("rows must not be negative, got %d", c.Rows))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("buffer size must be positive, got %d", c.BufferSize))
	}
	if c.MaxKeyLen < 1 {
		errs = append(errs, fmt.Errorf("max key length must be positive, got %d", c.MaxKeyLen))
	}
	if c.ReduceShards < 0 {
		errs = append(errs, fmt.Errorf("reduce shards must not be negative, got %d", c.ReduceShards))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func envUint(k string, def uint64) (uint64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
