package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var ErrMissingSigningKey = errors.New("api.jwt_signing_key must be set")

type AppConfig struct {
	API          *APIConfig          `mapstructure:"api"`
	Gin          *GinConfig          `mapstructure:"gin"`
	Postgres     *PostgresConfig     `mapstructure:"postgres"`
	RateLimit    *RateLimitConfig    `mapstructure:"rate_limit"`
	Registration *RegistrationConfig `mapstructure:"registration"`
	Realtime     *RealtimeConfig     `mapstructure:"realtime"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	Port               string        `mapstructure:"port"`
	BaseURL            string        `mapstructure:"base_url"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	JWTTTL             time.Duration `mapstructure:"jwt_ttl"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DSN renders the keyword/value connection string understood by pgx.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

type RateLimitConfig struct {
	AuthAttempts    int           `mapstructure:"auth_attempts"`
	AuthWindow      time.Duration `mapstructure:"auth_window"`
	MaxKeys         int           `mapstructure:"max_keys"`
	PublicPerMinute int           `mapstructure:"public_per_minute"`
}

type RegistrationConfig struct {
	CancellationCutoff time.Duration `mapstructure:"cancellation_cutoff"`
	ReconcileInterval  time.Duration `mapstructure:"reconcile_interval"`
}

type RealtimeConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SendBuffer     int      `mapstructure:"send_buffer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.base_url", "localhost:8080")
	v.SetDefault("api.jwt_ttl", 30*24*time.Hour)
	v.SetDefault("gin.mode", "release")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("rate_limit.auth_attempts", 5)
	v.SetDefault("rate_limit.auth_window", 15*time.Minute)
	v.SetDefault("rate_limit.max_keys", 10000)
	v.SetDefault("rate_limit.public_per_minute", 0)
	v.SetDefault("registration.cancellation_cutoff", 24*time.Hour)
	v.SetDefault("registration.reconcile_interval", 0)
	v.SetDefault("realtime.send_buffer", 256)
}

// Load reads the YAML file at path and overlays environment variables such as
// API_PORT or POSTGRES_HOST on top of it. A missing file is not an error.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
		}
	}

	conf, err := decode(v)
	if err != nil {
		return nil, err
	}

	return conf, nil
}

// Watch re-decodes the file whenever it changes and hands the fresh config to
// onChange. Only settings read per request (log level, CORS) pick it up.
func Watch(path string, onChange func(*AppConfig)) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		conf, err := decode(v)
		if err != nil {
			return
		}
		onChange(conf)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*AppConfig, error) {
	// Env-only keys are invisible to Unmarshal unless bound explicitly.
	for _, key := range []string{
		"api.jwt_signing_key", "api.port", "api.environment",
		"postgres.host", "postgres.port", "postgres.user", "postgres.password", "postgres.db",
	} {
		_ = v.BindEnv(key)
	}

	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if conf.API == nil || strings.TrimSpace(conf.API.JWTSigningKey) == "" {
		return nil, ErrMissingSigningKey
	}

	return conf, nil
}
