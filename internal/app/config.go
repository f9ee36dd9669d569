package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/vk/formulagrid/internal/scheduler"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// EntityPaths are entity files or directories searched for them.
	EntityPaths []string `toml:"paths" validate:"required,min=1,dive,required"`
	Workers     int      `toml:"workers" validate:"gte=1,lte=1024"`

	LogFormat string `toml:"log_format" validate:"oneof=text json"`
	LogLevel  string `toml:"log_level" validate:"oneof=debug info warn error"`

	// OutputFormat selects the result rendering, OutputPath its destination.
	// An empty OutputPath writes to the App's output writer.
	OutputFormat string `toml:"output_format" validate:"oneof=json text"`
	OutputPath   string `toml:"output_path"`

	// MetricsPath, when set, receives the Prometheus metrics after each run
	// in text exposition format.
	MetricsPath string `toml:"metrics_path"`

	// Watch re-runs the evaluation whenever an entity file changes.
	Watch bool `toml:"watch"`
	// ListenAddr serves /health, /metrics and /results in watch mode.
	ListenAddr string `toml:"listen_addr" validate:"omitempty,hostname_port"`

	// FailOnError makes a run that completed with failed nodes an error
	// for the caller.
	FailOnError bool `toml:"fail_on_error"`
}

var validate = validator.New()

// DefaultConfig returns the configuration used for every field that is not
// set explicitly.
func DefaultConfig() Config {
	return Config{
		Workers:      scheduler.DefaultWorkers,
		LogFormat:    "text",
		LogLevel:     "info",
		OutputFormat: "text",
	}
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, describeValidation(err)
	}
	if cfg.ListenAddr != "" && !cfg.Watch {
		return nil, errors.New("invalid configuration: listen_addr requires watch mode")
	}
	return &cfg, nil
}

// LoadConfigFile applies the settings of a TOML file on top of base. Keys
// the file does not set keep their value from base; unknown keys are an
// error.
func LoadConfigFile(path string, base Config) (Config, error) {
	cfg := base
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return base, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return base, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// describeValidation turns validator errors into one readable message
// naming every offending field.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "required", "min":
			msgs[i] = fmt.Sprintf("%s is required", fe.Field())
		case "oneof":
			msgs[i] = fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
		default:
			msgs[i] = fmt.Sprintf("%s failed the %q check (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
