package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "CREDITCLEAN"

// FileEnv names the variable holding an optional YAML config file path.
const FileEnv = EnvPrefix + "_CONFIG_FILE"

// Load builds the configuration from defaults, the YAML file named by
// CREDITCLEAN_CONFIG_FILE (if set) and environment variables, then validates
// the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	// Variables without a default tag are left untouched when unset, so
	// file and built-in values survive.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path. Keys absent from the file keep
// their current value.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML key so messages match what users edit
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// describe renders a field error as "<yaml path> (<env var>) <problem>".
func describe(fe validator.FieldError) string {
	// Namespace is "Config.server.port"; drop the root
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	field := path
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(field, ".", "_"))

	var problem string
	switch fe.Tag() {
	case "required":
		problem = "is required"
	case "required_if":
		problem = "is required when " + strings.Replace(fe.Param(), " ", " is ", 1)
	case "cidr|ip":
		problem = fmt.Sprintf("(%q) must be an IP address or CIDR", fe.Value())
	case "oneof":
		problem = fmt.Sprintf("(%v) must be one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "len":
		problem = fmt.Sprintf("(%q) must be exactly %s character", fe.Value(), fe.Param())
	case "gt":
		problem = "must be positive"
	case "gte":
		problem = "must be non-negative"
	case "min":
		problem = fmt.Sprintf("(%v) must be >= %s", fe.Value(), fe.Param())
	case "max":
		problem = fmt.Sprintf("(%v) must be <= %s", fe.Value(), fe.Param())
	case "ltefield":
		problem = fmt.Sprintf("(%v) must be <= %s", fe.Value(), fe.Param())
	default:
		problem = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return fmt.Sprintf("%s (%s) %s", path, env, problem)
}
