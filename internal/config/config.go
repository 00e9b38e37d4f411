package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const devSecret = "supersecret-dev-key"

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string   `mapstructure:"env"`       // local, dev, production
	Mode     Mode     `mapstructure:"mode"`      // offline (desktop, sqlite) or online (browser, postgres)
	HTTPAddr string   `mapstructure:"http_addr"` // gateway listen address
	SeedDir  string   `mapstructure:"seed_dir"`  // directory with question-set JSON files imported on first start
	DB       DB       `mapstructure:"database"`
	Auth     Auth     `mapstructure:"auth"`
	CORS     CORS     `mapstructure:"cors"`
	Autosave Autosave `mapstructure:"autosave"`
	History  History  `mapstructure:"history"`
}

type DB struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres or memory
	DSN    string `mapstructure:"dsn"`
}

type Auth struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type CORS struct {
	Origins []string `mapstructure:"origins"`
}

type Autosave struct {
	Delay time.Duration `mapstructure:"delay"`
}

type History struct {
	Window int `mapstructure:"window"`
}

// Load reads configuration from an optional .env file, an optional
// config/config.yaml and the environment.
func Load() (*Config, error) {
	// A missing .env is the common case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	v.SetDefault("env", "local")
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("seed_dir", "")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", "8h")
	v.SetDefault("cors.origins", "")
	v.SetDefault("autosave.delay", "1500ms")
	v.SetDefault("history.window", 10)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("mode", "MODE")
	_ = v.BindEnv("http_addr", "HTTP_ADDR")
	_ = v.BindEnv("seed_dir", "SEED_DIR")
	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.dsn", "DB_DSN")
	_ = v.BindEnv("auth.secret", "AUTH_HMAC_SECRET")
	_ = v.BindEnv("auth.token_ttl", "AUTH_TOKEN_TTL")
	_ = v.BindEnv("cors.origins", "CORS_ORIGINS")
	_ = v.BindEnv("autosave.delay", "AUTOSAVE_DELAY")
	_ = v.BindEnv("history.window", "HISTORY_WINDOW")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	// Env values arrive as one comma separated string.
	cfg.CORS.Origins = splitCSV(strings.Join(cfg.CORS.Origins, ","))

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	switch Mode(strings.ToLower(string(c.Mode))) {
	case ModeOnline:
		c.Mode = ModeOnline
	case ModeOffline, "":
		c.Mode = ModeOffline
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
		if c.Mode == ModeOnline {
			c.DB.Driver = "postgres"
		}
	}

	if c.Auth.Secret == "" {
		if c.Mode == ModeOnline {
			return ErrMissingEnvironmentVariables
		}
		c.Auth.Secret = devSecret
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 8 * time.Hour
	}

	if len(c.CORS.Origins) == 0 {
		if c.Mode == ModeOnline {
			c.CORS.Origins = []string{"https://practice.mindengage.ai"}
		} else {
			c.CORS.Origins = []string{"http://localhost:3000", "http://localhost:5000"}
		}
	}

	if c.Autosave.Delay <= 0 {
		c.Autosave.Delay = 1500 * time.Millisecond
	}
	if c.History.Window <= 0 {
		c.History.Window = 10
	}
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
