// Package config loads executor settings from YAML or JSON files and the
// environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/anggasct/umlsm"
	"github.com/anggasct/umlsm/pkg/store"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix prefixes environment overrides, e.g. UMLSM_LOG_LEVEL
const DefaultEnvPrefix = "UMLSM"

// Config is the file form of the executor settings
type Config struct {
	Log      LogConfig      `yaml:"log" json:"log"`
	Executor ExecutorConfig `yaml:"executor" json:"executor"`
	Store    StoreConfig    `yaml:"store" json:"store"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level" json:"level"`
	// Format is text or json
	Format string `yaml:"format" json:"format"`
}

// ExecutorConfig mirrors umlsm.Config with durations as strings
type ExecutorConfig struct {
	ActivityGracePeriod string `yaml:"activityGracePeriod" json:"activityGracePeriod"`
	MaxCompletionSteps  int    `yaml:"maxCompletionSteps" json:"maxCompletionSteps"`
}

// StoreConfig locates the snapshot store. An empty directory selects the
// in-memory store.
type StoreConfig struct {
	Dir    string `yaml:"dir" json:"dir"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	defaults := umlsm.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Executor: ExecutorConfig{
			ActivityGracePeriod: defaults.ActivityGracePeriod.String(),
			MaxCompletionSteps:  defaults.MaxCompletionSteps,
		},
		Store: StoreConfig{Format: string(store.JSON)},
	}
}

// Load reads a configuration file. The format follows the extension; files
// without a known extension are read as YAML.
func Load(path string) (*Config, error) {
	// #nosec G304 -- the path is chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

// Parse decodes data over the defaults
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables named
// PREFIX_SECTION_FIELD, e.g. UMLSM_EXECUTOR_MAXCOMPLETIONSTEPS.
func (c *Config) ApplyEnv(prefix string) error {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return applyEnv(prefix, reflect.ValueOf(c).Elem())
}

func applyEnv(prefix string, val reflect.Value) error {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !field.CanSet() {
			continue
		}
		key := prefix + "_" + strings.ToUpper(fieldType.Name)
		if field.Kind() == reflect.Struct {
			if err := applyEnv(key, field); err != nil {
				return err
			}
			continue
		}
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			continue
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Int:
			var n int64
			if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
				return fmt.Errorf("invalid integer in %s: %s", key, value)
			}
			field.SetInt(n)
		default:
			return fmt.Errorf("unsupported field type %s for %s", field.Kind(), key)
		}
	}
	return nil
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var errs []error
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unsupported format %q", c.Log.Format))
	}
	if _, err := c.gracePeriod(); err != nil {
		errs = append(errs, err)
	}
	if c.Executor.MaxCompletionSteps < 0 {
		errs = append(errs, fmt.Errorf("executor.maxCompletionSteps: must not be negative"))
	}
	switch store.Format(strings.ToLower(c.Store.Format)) {
	case "", store.JSON, store.YAML:
	default:
		errs = append(errs, fmt.Errorf("store.format: unsupported format %q", c.Store.Format))
	}
	return errors.Join(errs...)
}

func (c *Config) gracePeriod() (time.Duration, error) {
	if c.Executor.ActivityGracePeriod == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Executor.ActivityGracePeriod)
	if err != nil {
		return 0, fmt.Errorf("executor.activityGracePeriod: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("executor.activityGracePeriod: must not be negative")
	}
	return d, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", level)
	}
}

// NewLogger builds the configured slog logger writing to w
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Engine converts the executor section to umlsm.Config
func (c *Config) Engine() (umlsm.Config, error) {
	d, err := c.gracePeriod()
	if err != nil {
		return umlsm.Config{}, err
	}
	return umlsm.Config{
		ActivityGracePeriod: d,
		MaxCompletionSteps:  c.Executor.MaxCompletionSteps,
	}, nil
}

// ExecutorOptions returns the options configuring an executor: engine
// settings and a logger writing to w.
func (c *Config) ExecutorOptions(w io.Writer) ([]umlsm.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	engine, err := c.Engine()
	if err != nil {
		return nil, err
	}
	logger, err := c.NewLogger(w)
	if err != nil {
		return nil, err
	}
	return []umlsm.Option{umlsm.WithConfig(engine), umlsm.WithLogger(logger)}, nil
}

// OpenStore opens the configured snapshot store
func OpenStore[C any](cfg StoreConfig) (store.Store[C], error) {
	format := store.Format(strings.ToLower(cfg.Format))
	if format == "" {
		format = store.JSON
	}
	if cfg.Dir == "" {
		return store.NewMemoryStore[C](), nil
	}
	fs, err := store.NewFileStore[C](cfg.Dir, format)
	if err != nil {
		return nil, err
	}
	return fs, nil
}
