package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application
	App AppConfig `mapstructure:"app"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Payment webhooks
	Webhook WebhookConfig `mapstructure:"webhook"`

	// IP geolocation
	Geo GeoConfig `mapstructure:"geo"`

	// Click capture
	Clicks ClicksConfig `mapstructure:"clicks"`
}

type AppConfig struct {
	Environment  string `mapstructure:"environment"`
	ListenAddr   string `mapstructure:"listen_addr"`
	CookieDomain string `mapstructure:"cookie_domain"`
	// NodeID distinguishes replicas for snowflake id generation (0-1023).
	NodeID int64 `mapstructure:"node_id"`
}

// Production reports whether the service runs with production hardening
// (Secure cookies, JSON logs, metrics server).
func (a AppConfig) Production() bool {
	return a.Environment == "production"
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port           int    `mapstructure:"port"`
	Retention      string `mapstructure:"retention"`
	ScrapeInterval string `mapstructure:"scrape_interval"`
	Target         string `mapstructure:"target"`
}

type WebhookConfig struct {
	// DefaultSecret is the platform-level signing secret tried after
	// every tenant secret has failed to verify a delivery.
	DefaultSecret string `mapstructure:"default_secret"`
	// ToleranceSeconds bounds how stale a signed timestamp may be.
	ToleranceSeconds int `mapstructure:"tolerance_seconds"`
}

type GeoConfig struct {
	// Endpoint is an ip-api style JSON lookup URL; the IP is appended
	// as the final path segment. Empty disables network lookups.
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type ClicksConfig struct {
	// IPHashSecret keys the one-way HMAC applied to visitor IPs.
	IPHashSecret string `mapstructure:"ip_hash_secret"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.App.ListenAddr == "" {
		cfg.App.ListenAddr = ":8080"
	}
	if cfg.Webhook.ToleranceSeconds <= 0 {
		cfg.Webhook.ToleranceSeconds = 300
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// Application
	v.BindEnv("app.environment", "APP_ENV")
	v.BindEnv("app.listen_addr", "APP_LISTEN_ADDR")
	v.BindEnv("app.cookie_domain", "APP_COOKIE_DOMAIN")
	v.BindEnv("app.node_id", "APP_NODE_ID")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.retention", "PROM_RETENTION")
	v.BindEnv("prometheus.scrape_interval", "PROM_SCRAPE_INTERVAL")
	v.BindEnv("prometheus.target", "PROM_TARGET")

	// Webhooks
	v.BindEnv("webhook.default_secret", "WEBHOOK_DEFAULT_SECRET")
	v.BindEnv("webhook.tolerance_seconds", "WEBHOOK_TOLERANCE_SECONDS")

	// Geolocation
	v.BindEnv("geo.endpoint", "GEO_ENDPOINT")
	v.BindEnv("geo.timeout_seconds", "GEO_TIMEOUT_SECONDS")

	// Clicks
	v.BindEnv("clicks.ip_hash_secret", "CLICK_IP_HASH_SECRET")
}
