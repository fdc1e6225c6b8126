package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "STICKYBOARD"

// DevJWTSecret is only meant for local runs. Production deployments set STICKYBOARD_JWT_SECRET.
const DevJWTSecret = "dev-only-secret-key-for-sticky-board-change-me"

const minSecretLen = 32

// ServerConfig holds everything stickyboard-server needs at startup.
type ServerConfig struct {
	Server   ServerSection   `mapstructure:"server"`
	Database DatabaseSection `mapstructure:"database"`
	JWT      JWTSection      `mapstructure:"jwt"`
	Demo     DemoSection     `mapstructure:"demo"`
	Log      LogSection      `mapstructure:"log"`
}

type ServerSection struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	JanitorEvery   time.Duration `mapstructure:"janitor_every"`
}

// DatabaseSection keeps the two SQLite files apart: accounts live in the auth DB,
// boards and notes in the main DB.
type DatabaseSection struct {
	MainPath string `mapstructure:"main_path"`
	AuthPath string `mapstructure:"auth_path"`
}

type JWTSection struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
	Issuer     string        `mapstructure:"issuer"`
}

type DemoSection struct {
	Enabled  bool   `mapstructure:"enabled"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type LogSection struct {
	Level string `mapstructure:"level"`
}

// ClientConfig is read by stickyctl.
type ClientConfig struct {
	ServerURL string          `mapstructure:"server_url"`
	Store     StoreSection    `mapstructure:"store"`
	Reminder  ReminderSection `mapstructure:"reminder"`
}

type StoreSection struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
}

type ReminderSection struct {
	Interval     time.Duration `mapstructure:"interval"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	CleanupDays  int           `mapstructure:"cleanup_days"`
}

func newViper(name, path string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// readOptional reads the config file. A missing file is fine when the caller did
// not ask for a specific one; defaults and env vars still apply.
func readOptional(v *viper.Viper, explicit bool) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// LoadServer builds the server configuration from defaults, an optional
// stickyboard.yaml and STICKYBOARD_* environment variables.
func LoadServer(path string) (*ServerConfig, error) {
	v := newViper("stickyboard", path)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:4200", "http://frontend:80"})
	v.SetDefault("server.janitor_every", time.Hour)
	v.SetDefault("database.main_path", "NotesServer.db")
	v.SetDefault("database.auth_path", "AuthServer.db")
	v.SetDefault("jwt.secret", DevJWTSecret)
	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("jwt.issuer", "stickyboard")
	v.SetDefault("demo.enabled", true)
	v.SetDefault("demo.email", "demo@example.com")
	v.SetDefault("demo.password", "Password123")
	v.SetDefault("log.level", "info")

	if err := readOptional(v, path != ""); err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode server config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *ServerConfig) Validate() error {
	if len(c.JWT.Secret) < minSecretLen {
		return fmt.Errorf("jwt.secret must be at least %d bytes", minSecretLen)
	}
	if c.JWT.Expiration <= 0 {
		return errors.New("jwt.expiration must be positive")
	}
	if c.Database.MainPath == "" || c.Database.AuthPath == "" {
		return errors.New("database.main_path and database.auth_path are required")
	}
	if c.Demo.Enabled && (c.Demo.Email == "" || c.Demo.Password == "") {
		return errors.New("demo.email and demo.password are required when demo.enabled is set")
	}
	return nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".stickyboard", "store.json")
	}
	return filepath.Join(home, ".stickyboard", "store.json")
}

// LoadClient builds the stickyctl configuration.
func LoadClient(path string) (*ClientConfig, error) {
	v := newViper("stickyctl", path)

	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", defaultStorePath())
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("reminder.interval", 10*time.Second)
	v.SetDefault("reminder.initial_delay", 2*time.Second)
	v.SetDefault("reminder.cleanup_days", 7)

	if err := readOptional(v, path != ""); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode client config: %w", err)
	}
	switch cfg.Store.Driver {
	case "file", "redis", "memory":
	default:
		return nil, fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}
	if cfg.Reminder.Interval <= 0 {
		return nil, errors.New("reminder.interval must be positive")
	}
	return &cfg, nil
}
