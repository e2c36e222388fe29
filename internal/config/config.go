// Package config defines the CLI/env/file-driven configuration struct
// described in spec §6 and loads it via cobra/pflag flags overlaid with
// MATRIX_-prefixed environment variables.
package config

import (
	"time"

	"github.com/golobby/config/v3/pkg/feeder"
)

// Config is the full set of CLI-level tunables named in §6.
type Config struct {
	Path             string   `env:"MATRIX_PATH" yaml:"path"`
	Controller       string   `env:"MATRIX_CONTROLLER" yaml:"controller"`
	Model            string   `env:"MATRIX_MODEL" yaml:"model"`
	Cloud            string   `env:"MATRIX_CLOUD" yaml:"cloud"`
	ModelPrefix      string   `env:"MATRIX_MODEL_PREFIX" yaml:"modelprefix"`
	KeepModels       bool     `env:"MATRIX_KEEP_MODELS" yaml:"keepmodels"`
	LogLevel         string   `env:"MATRIX_LOG_LEVEL" yaml:"loglevel"`
	LogName          string   `env:"MATRIX_LOG_NAME" yaml:"logname"`
	LogFilter        string   `env:"MATRIX_LOG_FILTER" yaml:"logfilter"`
	OutputDir        string   `env:"MATRIX_OUTPUT_DIR" yaml:"outputdir"`
	Skin             string   `env:"MATRIX_SKIN" yaml:"skin"`
	Xunit            string   `env:"MATRIX_XUNIT" yaml:"xunit"`
	FailFast         bool     `env:"MATRIX_FAIL_FAST" yaml:"failfast"`
	IntervalSeconds  int      `env:"MATRIX_INTERVAL" yaml:"intervalseconds"`
	Debug            bool     `env:"MATRIX_DEBUG" yaml:"debug"`
	BootstrapTimeout int      `env:"MATRIX_BOOTSTRAP_TIMEOUT" yaml:"bootstraptimeout"`
	AdditionalSuites []string `env:"MATRIX_ADDITIONAL_SUITES" yaml:"additionalsuites"`
	TestPattern      string   `env:"MATRIX_TEST_PATTERN" yaml:"testpattern"`
	ChaosPlan        string   `env:"MATRIX_CHAOS_PLAN" yaml:"chaosplan"`
	ChaosNum         int      `env:"MATRIX_CHAOS_NUM" yaml:"chaosnum"`
	ChaosOutput      string   `env:"MATRIX_CHAOS_OUTPUT" yaml:"chaosoutput"`
	HA               bool     `env:"MATRIX_HA" yaml:"ha"`
	CrashdumpCmd     string   `env:"MATRIX_CRASHDUMP_CMD" yaml:"crashdumpcmd"`
}

// Defaults returns the baseline configuration applied before flags and
// environment overlays, matching the CLI's documented defaults.
func Defaults() Config {
	return Config{
		LogLevel:        "info",
		LogName:         "matrix.log",
		Skin:            "raw",
		OutputDir:       ".",
		IntervalSeconds: 5,
		ChaosOutput:     "chaos-%s.yaml",
		ChaosNum:        1,
	}
}

// Interval is IntervalSeconds as a time.Duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Load overlays cfg (normally Defaults(), already populated by cobra
// flag parsing) with MATRIX_-prefixed environment variables, matching
// the source tool's env-var override convention.
func Load(cfg *Config) error {
	return feeder.Env{}.Feed(cfg)
}

// LoadFile overlays cfg with a matrix.yaml-style config file, for
// settings operators would rather check into version control than
// pass as flags or environment variables every run. It runs before
// Load, so environment variables still win over the file.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	return feeder.Yaml{Path: path}.Feed(cfg)
}
