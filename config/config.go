package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tailscale/hujson"
)

type Config struct {
	AppPort  string
	AppEnv   string
	TimeZone string

	DBDriver   string // postgres | sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string // sqlite เท่านั้น
	DBListen   bool   // LISTEN/NOTIFY ระหว่างหลาย instance (postgres เท่านั้น)

	JWTSecret  string
	AdminEmail string
	TokenTTL   time.Duration

	RefreshInterval time.Duration
	ConfirmTTL      time.Duration

	TelegramToken  string
	TelegramChatID int64

	LogLevel string
}

var defaults = map[string]any{
	"app.port":     "8080",
	"app.env":      "dev",
	"app.timezone": "Asia/Bangkok",

	"db.driver":   "postgres",
	"db.host":     "localhost",
	"db.port":     "5432",
	"db.user":     "postgres",
	"db.password": "",
	"db.name":     "thaimilitary",
	"db.sslmode":  "disable",
	"db.path":     "./data/thaimilitary.db",
	"db.listen":   true,

	"auth.jwt_secret":  "dev-secret",
	"auth.admin_email": "admin@thaimilitary.online",
	"auth.token_ttl":   12 * time.Hour,

	"dashboard.refresh_interval": 30 * time.Second,
	"dashboard.confirm_ttl":      2 * time.Minute,

	"telegram.token":   "",
	"telegram.chat_id": int64(0),

	"log.level": "info",
}

// New returns a viper instance with defaults and TMO_* environment
// variables bound (db.host -> TMO_DB_HOST).
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("TMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds the command-line overrides cobra exposes.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"app.port":  "port",
		"db.driver": "db-driver",
		"db.path":   "db-path",
		"log.level": "log-level",
	} {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadFile merges a config file into v. .json/.jsonc/.hujson files may
// carry comments and trailing commas.
func ReadFile(v *viper.Viper, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc", ".hujson":
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		std, err := hujson.Standardize(raw)
		if err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		v.SetConfigType("json")
		return v.MergeConfig(bytes.NewReader(std))
	default:
		v.SetConfigFile(path)
		return v.MergeInConfig()
	}
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:  v.GetString("app.port"),
		AppEnv:   v.GetString("app.env"),
		TimeZone: v.GetString("app.timezone"),

		DBDriver:   strings.ToLower(v.GetString("db.driver")),
		DBHost:     v.GetString("db.host"),
		DBPort:     v.GetString("db.port"),
		DBUser:     v.GetString("db.user"),
		DBPassword: v.GetString("db.password"),
		DBName:     v.GetString("db.name"),
		DBSSLMode:  v.GetString("db.sslmode"),
		DBPath:     v.GetString("db.path"),
		DBListen:   v.GetBool("db.listen"),

		JWTSecret:  v.GetString("auth.jwt_secret"),
		AdminEmail: strings.ToLower(strings.TrimSpace(v.GetString("auth.admin_email"))),
		TokenTTL:   v.GetDuration("auth.token_ttl"),

		RefreshInterval: v.GetDuration("dashboard.refresh_interval"),
		ConfirmTTL:      v.GetDuration("dashboard.confirm_ttl"),

		TelegramToken:  v.GetString("telegram.token"),
		TelegramChatID: v.GetInt64("telegram.chat_id"),

		LogLevel: v.GetString("log.level"),
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("db.driver %q: want postgres or sqlite", cfg.DBDriver)
	}
	if cfg.AdminEmail == "" {
		return nil, fmt.Errorf("auth.admin_email must not be empty")
	}
	if cfg.RefreshInterval <= 0 || cfg.ConfirmTTL <= 0 || cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("durations must be positive")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// Location is the office time zone used for datetime-local input and display.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("app.timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" || c.AppEnv == "prod" }
