// Package config resolves runtime settings from three layers: struct
// defaults, an optional YAML config file, and environment variables, in
// rising precedence. A .env file in the working directory is loaded into
// the environment first. Each resolved value remembers which layer set
// it, which keeps "why is it using that model" debuggable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the environment variable prefix: CALENDER_HTTP_PORT etc.
const EnvPrefix = "calender"

// ValueSource names the layer a setting came from.
type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceFile    ValueSource = "file"
	SourceEnv     ValueSource = "env"
)

// Config holds the resolved runtime settings.
type Config struct {
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8000" yaml:"http_port"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"`

	// Store selection.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"sqlite" yaml:"store_backend"`
	DBPath       string `envconfig:"DB_PATH" default:"" yaml:"db_path"`
	EventFile    string `envconfig:"EVENT_FILE" default:"" yaml:"event_file"`

	// Completion service.
	LLMProvider string        `envconfig:"LLM_PROVIDER" default:"openai" yaml:"llm_provider"`
	LLMModel    string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini" yaml:"llm_model"`
	LLMAPIKey   string        `envconfig:"LLM_API_KEY" default:"" yaml:"llm_api_key"`
	LLMBaseURL  string        `envconfig:"LLM_BASE_URL" default:"" yaml:"llm_base_url"`
	LLMTimeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"30s" yaml:"llm_timeout"`

	// Calendar behavior.
	Timezone string `envconfig:"TIMEZONE" default:"Asia/Seoul" yaml:"timezone"`

	// Sources maps field env names (e.g. "HTTP_PORT") to the layer that
	// set them. Populated by Load.
	Sources map[string]ValueSource `envconfig:"-" yaml:"-"`
}

// DefaultConfigPath is where Load looks for the YAML file when no path is
// given.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".calender", "config.yaml")
}

// Load resolves the configuration. path may be empty; a missing config
// file is not an error, a malformed one is.
func Load(path string) (*Config, error) {
	// Populates the process environment; precedence below is unchanged
	// because these become plain env vars.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.Sources = map[string]ValueSource{}
	for _, name := range settingNames {
		cfg.Sources[name] = SourceDefault
		if _, ok := os.LookupEnv(strings.ToUpper(EnvPrefix) + "_" + name); ok {
			cfg.Sources[name] = SourceEnv
		}
	}

	if path == "" {
		path = DefaultConfigPath()
	}
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var settingNames = []string{
	"HTTP_PORT", "LOG_LEVEL",
	"STORE_BACKEND", "DB_PATH", "EVENT_FILE",
	"LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "LLM_BASE_URL", "LLM_TIMEOUT",
	"TIMEZONE",
}

type fileConfig struct {
	HTTPPort     *int           `yaml:"http_port"`
	LogLevel     *string        `yaml:"log_level"`
	StoreBackend *string        `yaml:"store_backend"`
	DBPath       *string        `yaml:"db_path"`
	EventFile    *string        `yaml:"event_file"`
	LLMProvider  *string        `yaml:"llm_provider"`
	LLMModel     *string        `yaml:"llm_model"`
	LLMAPIKey    *string        `yaml:"llm_api_key"`
	LLMBaseURL   *string        `yaml:"llm_base_url"`
	LLMTimeout   *time.Duration `yaml:"llm_timeout"`
	Timezone     *string        `yaml:"timezone"`
}

// overlayFile applies file values to every setting the environment did
// not set. Env always wins over file, file over default.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setInt := func(name string, dst *int, src *int) {
		if src != nil && c.Sources[name] != SourceEnv {
			*dst = *src
			c.Sources[name] = SourceFile
		}
	}
	setStr := func(name string, dst *string, src *string) {
		if src != nil && c.Sources[name] != SourceEnv {
			*dst = *src
			c.Sources[name] = SourceFile
		}
	}
	setDur := func(name string, dst *time.Duration, src *time.Duration) {
		if src != nil && c.Sources[name] != SourceEnv {
			*dst = *src
			c.Sources[name] = SourceFile
		}
	}

	setInt("HTTP_PORT", &c.HTTPPort, fc.HTTPPort)
	setStr("LOG_LEVEL", &c.LogLevel, fc.LogLevel)
	setStr("STORE_BACKEND", &c.StoreBackend, fc.StoreBackend)
	setStr("DB_PATH", &c.DBPath, fc.DBPath)
	setStr("EVENT_FILE", &c.EventFile, fc.EventFile)
	setStr("LLM_PROVIDER", &c.LLMProvider, fc.LLMProvider)
	setStr("LLM_MODEL", &c.LLMModel, fc.LLMModel)
	setStr("LLM_API_KEY", &c.LLMAPIKey, fc.LLMAPIKey)
	setStr("LLM_BASE_URL", &c.LLMBaseURL, fc.LLMBaseURL)
	setDur("LLM_TIMEOUT", &c.LLMTimeout, fc.LLMTimeout)
	setStr("TIMEZONE", &c.Timezone, fc.Timezone)
	return nil
}

// Location resolves the configured timezone, falling back to UTC when the
// name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
