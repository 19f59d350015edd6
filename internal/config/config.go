package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/LiveState/internal/logging"
)

type Config struct {
	Mode      string          `mapstructure:"mode"`
	Port      int             `mapstructure:"port"`
	Secret    string          `mapstructure:"secret"`
	Log       logging.Config  `mapstructure:"log"`
	Native    NativeConfig    `mapstructure:"native"`
	WS        WSConfig        `mapstructure:"ws"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Fanout    FanoutConfig    `mapstructure:"fanout"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

// NativeConfig controls the native peer endpoint and call defaults.
type NativeConfig struct {
	Token       string        `mapstructure:"token"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Retry       int           `mapstructure:"retry"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

type WSConfig struct {
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	MaxInflight    int           `mapstructure:"max_inflight"`
	SlowSubscriber string        `mapstructure:"slow_subscriber"`
}

type RateLimitConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

type FanoutConfig struct {
	Driver string      `mapstructure:"driver"`
	Buffer int         `mapstructure:"buffer"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type ArchiveConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	FilePath        string        `mapstructure:"file_path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName, falling back to defaults when it is missing.
// Every key can be overridden from the environment, e.g. NATIVE_TOKEN.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
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
		Str("fanout", cfg.Fanout.Driver).Str("archive", cfg.Archive.Driver).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "livestate-dev-secret")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("native.token", "")
	v.SetDefault("native.call_timeout", "10s")
	v.SetDefault("native.retry", 0)
	v.SetDefault("native.retry_delay", "500ms")

	v.SetDefault("ws.read_limit", 32768)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.send_buffer", 64)
	v.SetDefault("ws.max_inflight", 8)
	v.SetDefault("ws.slow_subscriber", "kick")

	v.SetDefault("ratelimit.limit", 10)
	v.SetDefault("ratelimit.interval", "10s")

	v.SetDefault("fanout.driver", "none")
	v.SetDefault("fanout.buffer", 256)
	v.SetDefault("fanout.redis.address", "localhost:6379")
	v.SetDefault("fanout.redis.password", "")
	v.SetDefault("fanout.redis.db", 0)
	v.SetDefault("fanout.redis.pool_size", 10)

	v.SetDefault("archive.driver", "sqlite")
	v.SetDefault("archive.host", "localhost")
	v.SetDefault("archive.port", 0)
	v.SetDefault("archive.user", "")
	v.SetDefault("archive.password", "")
	v.SetDefault("archive.db_name", "livestate")
	v.SetDefault("archive.ssl_mode", "disable")
	v.SetDefault("archive.file_path", "livestate.db")
	v.SetDefault("archive.max_idle_conns", 2)
	v.SetDefault("archive.max_open_conns", 10)
	v.SetDefault("archive.conn_max_lifetime", "30m")
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Native.Retry < 0 {
		return fmt.Errorf("native.retry must not be negative")
	}
	switch c.Fanout.Driver {
	case "none", "redis":
	default:
		return fmt.Errorf("unknown fanout driver %q", c.Fanout.Driver)
	}
	switch c.Archive.Driver {
	case "none", "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}
	return nil
}
