package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cron      CronConfig      `mapstructure:"cron"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Returns   ReturnsConfig   `mapstructure:"returns"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Reconcile string `mapstructure:"reconcile"`
}

type LedgerConfig struct {
	SaveRetries int           `mapstructure:"save_retries"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type ReturnsConfig struct {
	MovementMin float64 `mapstructure:"movement_min"`
	MovementMax float64 `mapstructure:"movement_max"`
}

type AnalyticsConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type ReconcileConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Window  time.Duration `mapstructure:"window"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ADV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.reconcile", "@every 1h")
	v.SetDefault("ledger.save_retries", 3)
	v.SetDefault("ledger.call_timeout", "5s")
	v.SetDefault("returns.movement_min", -0.03)
	v.SetDefault("returns.movement_max", 0.05)
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.window", "0")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
