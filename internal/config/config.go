// Package config loads the map generator configuration from an optional YAML
// file, an optional .env file, AIRMAP_* environment variables and the legacy
// variable names used by the deployed functions.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sternrassler/inpost-airmap/pkg/client"
	"github.com/Sternrassler/inpost-airmap/pkg/points"
)

// EnvPrefix is prepended to every environment override, e.g. AIRMAP_PUBLISHER_BUCKET.
const EnvPrefix = "AIRMAP"

// Response body modes.
const (
	BodyJSON = "json"
	BodyHTML = "html"
)

var (
	// ErrInvalidPalette indicates a palette entry not in CATEGORY=color form.
	ErrInvalidPalette = errors.New("invalid palette entry")

	// ErrInvalidResponseBody indicates an unsupported response.body value.
	ErrInvalidResponseBody = errors.New("response.body must be json or html")
)

// Config holds all configuration for the application.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Collector CollectorConfig `mapstructure:"collector"`
	Render    RenderConfig    `mapstructure:"render"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Response  ResponseConfig  `mapstructure:"response"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// APIConfig holds points API settings.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CollectorConfig holds page collection settings.
type CollectorConfig struct {
	MaxConcurrency   int `mapstructure:"max_concurrency"`
	ProgressInterval int `mapstructure:"progress_interval"`
}

// RenderConfig holds map presentation settings.
type RenderConfig struct {
	CenterLat       float64  `mapstructure:"center_lat"`
	CenterLon       float64  `mapstructure:"center_lon"`
	Zoom            int      `mapstructure:"zoom"`
	Radius          float64  `mapstructure:"radius"`
	FillOpacity     float64  `mapstructure:"fill_opacity"`
	CompletionAlert bool     `mapstructure:"completion_alert"`
	Timezone        string   `mapstructure:"timezone"`
	Palette         []string `mapstructure:"palette"` // CATEGORY=color overrides
}

// PublisherConfig holds the destination of the rendered map.
type PublisherConfig struct {
	Backend   string `mapstructure:"backend"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Directory string `mapstructure:"directory"`
}

// ResponseConfig selects the envelope body.
type ResponseConfig struct {
	Body string `mapstructure:"body"`
}

// RedisConfig holds the run-status store connection. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServerConfig holds the serve command settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. configFile may be empty, in which case ./config.yaml
// and ./config/config.yaml are tried and a missing file is not an error.
// A .env file in the working directory is loaded first; it never overrides
// variables already set in the environment.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", client.DefaultBaseURL)
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.user_agent", "inpost-airmap/1.0")

	v.SetDefault("collector.max_concurrency", 32)
	v.SetDefault("collector.progress_interval", 10)

	v.SetDefault("render.center_lat", 52.0)
	v.SetDefault("render.center_lon", 19.0)
	v.SetDefault("render.zoom", 7)
	v.SetDefault("render.radius", 750.0)
	v.SetDefault("render.fill_opacity", 0.6)
	v.SetDefault("render.completion_alert", false)
	v.SetDefault("render.timezone", "Europe/Warsaw")
	v.SetDefault("render.palette", []string{})

	v.SetDefault("publisher.backend", "s3")
	v.SetDefault("publisher.bucket", "inpost-map-data")
	v.SetDefault("publisher.key", "index.html")
	v.SetDefault("publisher.endpoint", "")
	v.SetDefault("publisher.region", "")
	v.SetDefault("publisher.access_key", "")
	v.SetDefault("publisher.secret_key", "")
	v.SetDefault("publisher.use_ssl", true)
	v.SetDefault("publisher.directory", "")

	v.SetDefault("response.body", BodyJSON)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// bindLegacyEnv keeps the variable names of the deployed functions working.
// The prefixed name wins when both are set.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"api.token":            {"AIRMAP_API_TOKEN", "INPOST_API_TOKEN"},
		"publisher.bucket":     {"AIRMAP_PUBLISHER_BUCKET", "S3_BUCKET_NAME", "GCS_BUCKET_NAME"},
		"publisher.access_key": {"AIRMAP_PUBLISHER_ACCESS_KEY", "AWS_ACCESS_KEY_ID"},
		"publisher.secret_key": {"AIRMAP_PUBLISHER_SECRET_KEY", "AWS_SECRET_ACCESS_KEY"},
		"publisher.region":     {"AIRMAP_PUBLISHER_REGION", "AWS_REGION"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a run.
// The API token is not checked here: every run checks it before its first
// request and reports a missing token through the run envelope.
func (c *Config) Validate() error {
	if _, err := c.PaletteOverrides(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Response.Body {
	case BodyJSON, BodyHTML:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidResponseBody, c.Response.Body)
	}
	return nil
}

// PaletteOverrides parses render.palette entries. Only categories of the
// default palette can be recoloured.
func (c *Config) PaletteOverrides() (points.Palette, error) {
	known := points.DefaultPalette()
	overrides := points.Palette{}
	for _, entry := range c.Render.Palette {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		category, color, ok := strings.Cut(entry, "=")
		category, color = strings.TrimSpace(category), strings.TrimSpace(color)
		if !ok || category == "" || color == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPalette, entry)
		}
		if _, ok := known.Color(category); !ok {
			return nil, fmt.Errorf("%w: unknown category %q (known: %s)",
				ErrInvalidPalette, category, strings.Join(known.Categories(), ", "))
		}
		overrides[category] = color
	}
	return overrides, nil
}

// Palette returns the default palette with overrides applied.
func (c *Config) Palette() (points.Palette, error) {
	overrides, err := c.PaletteOverrides()
	if err != nil {
		return nil, err
	}
	palette := points.DefaultPalette()
	for category, color := range overrides {
		palette[category] = color
	}
	return palette, nil
}

// Location resolves render.timezone; an empty value means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Render.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Render.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid render.timezone %q: %w", c.Render.Timezone, err)
	}
	return loc, nil
}
