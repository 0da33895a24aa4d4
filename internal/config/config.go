package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	StaticPath      string        `mapstructure:"static_path"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
	Secret          string        `mapstructure:"secret"`
	LogLevel        string        `mapstructure:"log_level"`
	HeartbeatPeriod time.Duration `mapstructure:"heartbeat_period"`

	Admin     AdminConfig     `mapstructure:"admin"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Reaper    ReaperConfig    `mapstructure:"reaper"`
	JoinLimit JoinLimitConfig `mapstructure:"join_limit"`
}

type AdminConfig struct {
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
}

type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisKey      string `mapstructure:"redis_key"`
}

type SchedulerConfig struct {
	Mode        string        `mapstructure:"mode"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	IdleBackoff time.Duration `mapstructure:"idle_backoff"`
	StartDelay  time.Duration `mapstructure:"start_delay"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	Freshness   time.Duration `mapstructure:"freshness"`
	PairRetries int           `mapstructure:"pair_retries"`
}

type ReaperConfig struct {
	Period    time.Duration `mapstructure:"period"`
	Staleness time.Duration `mapstructure:"staleness"`
}

type JoinLimitConfig struct {
	Count    int           `mapstructure:"count"`
	Interval time.Duration `mapstructure:"interval"`
}

const (
	StoreTOML   = "toml"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Load reads config/config.<CONFIG_ENV>.yaml (CONFIG_ENV defaults to dev).
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName on top of the defaults. A missing file is not an error.
// Every key can be overridden by CHORUS_<KEY> with dots replaced by underscores.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CHORUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).Str("scheduler", cfg.Scheduler.Mode).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("heartbeat_period", "5s")

	v.SetDefault("admin.password", "")
	v.SetDefault("admin.password_hash", "")

	v.SetDefault("store.driver", StoreTOML)
	v.SetDefault("store.path", "./data/rooms.toml")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_key", "chorus:rooms")

	v.SetDefault("scheduler.mode", "simultaneous")
	v.SetDefault("scheduler.min_delay", "15s")
	v.SetDefault("scheduler.max_delay", "25s")
	v.SetDefault("scheduler.idle_backoff", "5s")
	v.SetDefault("scheduler.start_delay", "3s")
	v.SetDefault("scheduler.settle_delay", "0s")
	v.SetDefault("scheduler.freshness", "15s")
	v.SetDefault("scheduler.pair_retries", 16)

	v.SetDefault("reaper.period", "5s")
	v.SetDefault("reaper.staleness", "15s")

	v.SetDefault("join_limit.count", 10)
	v.SetDefault("join_limit.interval", "1m")
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreTOML, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s store", c.Store.Driver)
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.HeartbeatPeriod <= 0 {
		return fmt.Errorf("heartbeat_period must be positive, got %s", c.HeartbeatPeriod)
	}
	if c.Reaper.Period <= 0 {
		return fmt.Errorf("reaper.period must be positive, got %s", c.Reaper.Period)
	}
	if c.Reaper.Staleness < 2*c.HeartbeatPeriod {
		return fmt.Errorf("reaper.staleness (%s) must be at least twice heartbeat_period (%s)",
			c.Reaper.Staleness, c.HeartbeatPeriod)
	}
	if c.JoinLimit.Count < 1 || c.JoinLimit.Interval <= 0 {
		return errors.New("join_limit needs a positive count and interval")
	}
	return nil
}
