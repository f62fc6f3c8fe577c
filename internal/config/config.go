// Package config holds the runtime configuration shared by the CLI and the
// server. Values come from Default, optionally overlaid by a YAML file, and
// finally by command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
)

// DefaultQueryFile is looked up in the data directory when no query path is set.
const DefaultQueryFile = "query.csv"

type Config struct {
	Data   DataConfig   `yaml:"data"`
	Search SearchConfig `yaml:"search"`
	Bench  BenchConfig  `yaml:"bench"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

type DataConfig struct {
	Dir             string `yaml:"dir" validate:"required"`
	Prefix          string `yaml:"prefix" validate:"required"`
	Query           string `yaml:"query"`
	LoadConcurrency int    `yaml:"load_concurrency" validate:"gte=0"`
}

type SearchConfig struct {
	Strategy  string `yaml:"strategy" validate:"strategy"`
	Axis      string `yaml:"axis" validate:"axis"`
	Threads   int    `yaml:"threads" validate:"gte=0"`
	EarlyExit bool   `yaml:"early_exit"`
}

type BenchConfig struct {
	Strategies []string `yaml:"strategies" validate:"min=1,dive,strategy"`
	Axes       []string `yaml:"axes" validate:"min=1,dive,axis"`
	Threads    []int    `yaml:"threads" validate:"min=1,dive,gte=1"`
	Repeats    int      `yaml:"repeats" validate:"gte=1"`
}

type ServerConfig struct {
	Addr          string  `yaml:"addr" validate:"required"`
	ReportsDir    string  `yaml:"reports_dir" validate:"required"`
	JobsPerSecond float64 `yaml:"jobs_per_second" validate:"gt=0"`
	Burst         int     `yaml:"burst" validate:"gte=1"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:             "data",
			Prefix:          "series_",
			LoadConcurrency: 8,
		},
		Search: SearchConfig{
			Strategy: string(match.StrategyReduction),
			Axis:     string(match.AxisWithinSeries),
		},
		Bench: BenchConfig{
			Strategies: []string{
				string(match.StrategyBottleneck),
				string(match.StrategyLocalReduce),
				string(match.StrategyReduction),
			},
			Axes:    []string{string(match.AxisOverSeries), string(match.AxisWithinSeries)},
			Threads: []int{1, 2, 4, 8},
			Repeats: 3,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			ReportsDir:    "./reports",
			JobsPerSecond: 2,
			Burst:         4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Keys missing from the file keep their default value.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// QueryPath returns the configured query file, or query.csv inside the
// data directory.
func (c *Config) QueryPath() string {
	if c.Data.Query != "" {
		return c.Data.Query
	}
	return filepath.Join(c.Data.Dir, DefaultQueryFile)
}

// Validate checks every section and reports all offending fields at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := match.ParseStrategy(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("axis", func(fl validator.FieldLevel) bool {
		_, err := match.ParseAxis(fl.Field().String())
		return err == nil
	})
}
