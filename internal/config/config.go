// Package config loads dashboard settings from defaults, an optional YAML
// file, a .env file and BIODASH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. BIODASH_RESULTS_DIR.
const EnvPrefix = "BIODASH"

// Config is the full application configuration.
type Config struct {
	UsersFile  string `mapstructure:"users_file" yaml:"users_file"`
	ResultsDir string `mapstructure:"results_dir" yaml:"results_dir"`
	UsersDir   string `mapstructure:"users_dir" yaml:"users_dir"`

	Signal struct {
		SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	} `mapstructure:"signal" yaml:"signal"`

	Camera struct {
		// Device is the capture device index
		Device int `mapstructure:"device" yaml:"device"`
		// Interval between frame reads
		Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	} `mapstructure:"camera" yaml:"camera"`

	History struct {
		Backend string `mapstructure:"backend" yaml:"backend"`
		Mongo   struct {
			URI        string `mapstructure:"uri" yaml:"uri"`
			Database   string `mapstructure:"database" yaml:"database"`
			Collection string `mapstructure:"collection" yaml:"collection"`
		} `mapstructure:"mongo" yaml:"mongo"`
		SQLite struct {
			Path string `mapstructure:"path" yaml:"path"`
		} `mapstructure:"sqlite" yaml:"sqlite"`
	} `mapstructure:"history" yaml:"history"`

	Log struct {
		Debug bool   `mapstructure:"debug" yaml:"debug"`
		File  string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{
		UsersFile:  "usuarios.xml",
		ResultsDir: "resultados",
		UsersDir:   "Usuarios",
	}
	cfg.Signal.SampleRate = 250
	cfg.Camera.Device = 0
	cfg.Camera.Interval = 30 * time.Millisecond
	cfg.History.Backend = "mongo"
	cfg.History.Mongo.Database = "biodash"
	cfg.History.Mongo.Collection = "events"
	cfg.History.SQLite.Path = "biodash.db"
	return cfg
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("users_file", cfg.UsersFile)
	v.SetDefault("results_dir", cfg.ResultsDir)
	v.SetDefault("users_dir", cfg.UsersDir)
	v.SetDefault("signal.sample_rate", cfg.Signal.SampleRate)
	v.SetDefault("camera.device", cfg.Camera.Device)
	v.SetDefault("camera.interval", cfg.Camera.Interval)
	v.SetDefault("history.backend", cfg.History.Backend)
	v.SetDefault("history.mongo.uri", cfg.History.Mongo.URI)
	v.SetDefault("history.mongo.database", cfg.History.Mongo.Database)
	v.SetDefault("history.mongo.collection", cfg.History.Mongo.Collection)
	v.SetDefault("history.sqlite.path", cfg.History.SQLite.Path)
	v.SetDefault("log.debug", cfg.Log.Debug)
	v.SetDefault("log.file", cfg.Log.File)
}

// Load builds the configuration. cfgFile may be empty, in which case
// config.yaml in the working directory is used when present.
func Load(cfgFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the dashboard cannot run with.
func (c *Config) Validate() error {
	if c.Signal.SampleRate <= 0 {
		return fmt.Errorf("signal.sample_rate must be positive, got %v", c.Signal.SampleRate)
	}
	if c.Camera.Interval <= 0 {
		return fmt.Errorf("camera.interval must be positive, got %v", c.Camera.Interval)
	}
	switch strings.ToLower(c.History.Backend) {
	case "mongo", "mongodb", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("history.backend must be mongo or sqlite, got %q", c.History.Backend)
	}
	if c.ResultsDir == "" {
		return fmt.Errorf("results_dir must not be empty")
	}
	return nil
}

// WriteDefault writes the default configuration as YAML to path.
func WriteDefault(path string) error {
	return Save(DefaultConfig(), path)
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
