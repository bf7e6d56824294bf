// Package config layers filemod settings: defaults, then a YAML file, then
// environment variables (with a .env file as fallback for unset variables).
// Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigFile = "FILEMOD_CONFIG"
	EnvSuffix     = "FILEMOD_SUFFIX"
	EnvWorkers    = "WORKERS"
	EnvRateLimit  = "RATE_LIMIT_RPS"
	EnvFailFast   = "FAIL_FAST"
	EnvTimeout    = "FILE_TIMEOUT"
	EnvShow       = "SHOW_CONTENT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFormat  = "LOG_FORMAT"
)

// Config holds the effective settings for a run.
//
// Example (YAML):
//
//	suffix: _modified
//	workers: 4
//	rate_limit_rps: 0
//	fail_fast: false
//	timeout: 30s
//	show: false
//	log_level: warn
//	log_format: text
type Config struct {
	Suffix       string        `yaml:"suffix"`
	Workers      int           `yaml:"workers"`
	RateLimitRPS float64       `yaml:"rate_limit_rps"`
	FailFast     bool          `yaml:"fail_fast"`
	Timeout      time.Duration `yaml:"timeout"`
	Show         bool          `yaml:"show"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		Suffix:    "_modified",
		Workers:   4,
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// File is the YAML config path. When empty, $FILEMOD_CONFIG is used; when
	// that is empty too, no file is read.
	File string
	// DotEnv is a .env path whose values back variables missing from Getenv.
	// A missing file is ignored.
	DotEnv string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds a Config from defaults, the YAML file and the environment.
func Load(opts LoadOptions) (Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if opts.DotEnv != "" {
		dotenv, err := godotenv.Read(opts.DotEnv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", opts.DotEnv, err)
		}
		getenv = withFallback(getenv, dotenv)
	}

	cfg := Defaults()

	path := strings.TrimSpace(opts.File)
	if path == "" {
		path = strings.TrimSpace(getenv(EnvConfigFile))
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(getenv, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config YAML %s: %w", path, err)
	}
	return nil
}

func applyEnv(getenv func(string) string, cfg *Config) error {
	var err error
	if v := strings.TrimSpace(getenv(EnvSuffix)); v != "" {
		cfg.Suffix = v
	}
	if cfg.Workers, err = envInt(getenv, EnvWorkers, cfg.Workers); err != nil {
		return err
	}
	if cfg.RateLimitRPS, err = envFloat(getenv, EnvRateLimit, cfg.RateLimitRPS); err != nil {
		return err
	}
	if cfg.FailFast, err = envBool(getenv, EnvFailFast, cfg.FailFast); err != nil {
		return err
	}
	if cfg.Timeout, err = envDuration(getenv, EnvTimeout, cfg.Timeout); err != nil {
		return err
	}
	if cfg.Show, err = envBool(getenv, EnvShow, cfg.Show); err != nil {
		return err
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(EnvLogFormat)); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	return nil
}

// Validate reports the first invalid setting.
func Validate(cfg Config) error {
	if cfg.Suffix == "" {
		return fmt.Errorf("suffix must not be empty")
	}
	if strings.ContainsAny(cfg.Suffix, `/\`) {
		return fmt.Errorf("suffix %q must not contain a path separator", cfg.Suffix)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must be >= 0, got %g", cfg.RateLimitRPS)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", cfg.Timeout)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug|info|warn|error, got %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", cfg.LogFormat)
	}
	return nil
}

func withFallback(getenv func(string) string, fallback map[string]string) func(string) string {
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback[key]
	}
}

func envInt(getenv func(string) string, varName string, fallback int) (int, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(getenv func(string) string, varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(getenv func(string) string, varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(getenv func(string) string, varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
