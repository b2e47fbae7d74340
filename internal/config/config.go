package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
	Journal  JournalConfig  `mapstructure:"journal"`
}

// APIConfig points at the loan backend.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// RegistrationURL overrides the customer registration endpoint only.
	RegistrationURL string        `mapstructure:"registration_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string `mapstructure:"timezone"`
}

// JournalConfig toggles the local audit journal.
type JournalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

const envPrefix = "CREDITOFACIL"

// Path returns the config file location: $CREDITOFACIL_CONFIG or
// ~/.config/creditofacil/config.toml.
func Path() string {
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "creditofacil", "config.toml")
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")
	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.registration_url", "")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "creditofacil", "creditofacil.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "creditofacil", "creditofacil.log"))
	v.SetDefault("ui.date_format", "02/01/2006")
	v.SetDefault("ui.currency_symbol", "R$")
	v.SetDefault("ui.timezone", "America/Sao_Paulo")
	v.SetDefault("journal.enabled", true)
}

// Load reads configuration from a .env file, the config file and env.
// Env var overrides use prefix CREDITOFACIL_ (CREDITOFACIL_API_BASE_URL).
func Load() (Config, error) {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the client cannot work with.
func (c Config) Validate() error {
	if err := checkURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if c.API.RegistrationURL != "" {
		if err := checkURL("api.registration_url", c.API.RegistrationURL); err != nil {
			return err
		}
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %s", c.API.Timeout)
	}
	if l := c.UI.DateFormat; l != "" && !strings.Contains(l, "06") {
		return fmt.Errorf("config: ui.date_format %q has no year (use a Go layout such as 02/01/2006)", l)
	}
	return nil
}

func checkURL(key, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("config: %s is empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: %s must be an http(s) url, got %q", key, raw)
	}
	return nil
}

// Location resolves ui.timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.UI.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.registration_url", cfg.API.RegistrationURL)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.path", cfg.Log.Path)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("journal.enabled", cfg.Journal.Enabled)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
