// Package config loads gridcheck settings from YAML or TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Driver      DriverConfig      `yaml:"driver"      toml:"driver"`
	BaseURL     string            `yaml:"base_url"    toml:"base_url"    validate:"omitempty,url"`
	Credentials CredentialsConfig `yaml:"credentials" toml:"credentials"`
	Repository  string            `yaml:"repository"  toml:"repository"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"    toml:"timeouts"`
	Settle      SettleConfig      `yaml:"settle"      toml:"settle"`
	Pagination  PaginationConfig  `yaml:"pagination"  toml:"pagination"`
	Artifacts   ArtifactConfig    `yaml:"artifacts"   toml:"artifacts"`
	Logging     LoggingConfig     `yaml:"logging"     toml:"logging"`
	TestData    map[string]string `yaml:"test_data"   toml:"test_data"`
}

type DriverConfig struct {
	Backend      string `yaml:"backend"       toml:"backend"       validate:"required"`
	Headless     bool   `yaml:"headless"      toml:"headless"`
	WindowWidth  int    `yaml:"window_width"  toml:"window_width"  validate:"gte=0"`
	WindowHeight int    `yaml:"window_height" toml:"window_height" validate:"gte=0"`
	RemoteURL    string `yaml:"remote_url"    toml:"remote_url"    validate:"omitempty,url"`
	Document     string `yaml:"document"      toml:"document"`
}

// CredentialsConfig is the account the login step signs in with.
type CredentialsConfig struct {
	Username string `yaml:"username" toml:"username" validate:"required_with=Password"`
	Password string `yaml:"password" toml:"password"`
}

// TimeoutConfig bounds polling waits.
type TimeoutConfig struct {
	Element  Duration `yaml:"element"  toml:"element"  validate:"gt=0"`
	Absence  Duration `yaml:"absence"  toml:"absence"  validate:"gt=0"`
	Action   Duration `yaml:"action"   toml:"action"   validate:"gt=0"`
	Poll     Duration `yaml:"poll"     toml:"poll"     validate:"gt=0"`
	Dropdown Duration `yaml:"dropdown" toml:"dropdown" validate:"gt=0"`
}

// SettleConfig holds the fixed delays applied after state-changing actions.
type SettleConfig struct {
	Navigation Duration `yaml:"navigation" toml:"navigation" validate:"gte=0"`
	Edit       Duration `yaml:"edit"       toml:"edit"       validate:"gte=0"`
	Save       Duration `yaml:"save"       toml:"save"       validate:"gte=0"`
	Verify     Duration `yaml:"verify"     toml:"verify"     validate:"gte=0"`
	Toggle     Duration `yaml:"toggle"     toml:"toggle"     validate:"gte=0"`
	Picker     Duration `yaml:"picker"     toml:"picker"     validate:"gte=0"`
	Option     Duration `yaml:"option"     toml:"option"     validate:"gte=0"`
}

type PaginationConfig struct {
	MaxSteps int `yaml:"max_steps" toml:"max_steps" validate:"gt=0"`
}

type ArtifactConfig struct {
	Dir string `yaml:"dir" toml:"dir" validate:"required"`
	// MaxWidth downscales wider screenshots; 0 keeps the original size.
	MaxWidth int `yaml:"max_width" toml:"max_width" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string   `yaml:"level"  toml:"level"  validate:"oneof=trace debug info warn error fatal"`
	Output []string `yaml:"output" toml:"output" validate:"dive,oneof=console stdout file"`
	File   string   `yaml:"file"   toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Driver: DriverConfig{
			Backend:      "chrome",
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Timeouts: TimeoutConfig{
			Element:  Duration(10 * time.Second),
			Absence:  Duration(5 * time.Second),
			Action:   Duration(15 * time.Second),
			Poll:     Duration(250 * time.Millisecond),
			Dropdown: Duration(2 * time.Second),
		},
		Settle: SettleConfig{
			Navigation: Duration(time.Second),
			Edit:       Duration(time.Second),
			Save:       Duration(1500 * time.Millisecond),
			Verify:     Duration(time.Second),
			Toggle:     Duration(time.Second),
			Picker:     Duration(500 * time.Millisecond),
			Option:     Duration(300 * time.Millisecond),
		},
		Pagination: PaginationConfig{MaxSteps: 50},
		Artifacts:  ArtifactConfig{Dir: "screenshots", MaxWidth: 1280},
		Logging:    LoggingConfig{Level: "info", Output: []string{"console"}},
		TestData:   map[string]string{},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml is TOML, anything else YAML. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	}
	if cfg.TestData == nil {
		cfg.TestData = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
