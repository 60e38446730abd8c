package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Rabbit   RabbitConfig   `mapstructure:"rabbit"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StoreConfig selects the backend holding user records and chat history.
// Driver is one of "sqlite", "mysql" or "redis".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RabbitConfig is optional: audit entries go straight to the audit bucket when URL is empty.
type RabbitConfig struct {
	URL        string `mapstructure:"url"`
	AuditQueue string `mapstructure:"audit_queue"`
	Workers    int    `mapstructure:"workers"`
}

type AuthConfig struct {
	JWKSURL      string `mapstructure:"jwks_url"`
	ClientID     string `mapstructure:"client_id"`
	AuthorizeURL string `mapstructure:"authorize_url"`
	TokenURL     string `mapstructure:"token_url"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	DashboardURL string `mapstructure:"dashboard_url"`
}

type RelayConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	SecretFile string        `mapstructure:"secret_file"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RealtimeConfig struct {
	RequireToken bool `mapstructure:"require_token"`
}

type StorageConfig struct {
	Region      string        `mapstructure:"region"`
	Bucket      string        `mapstructure:"bucket"`
	AuditBucket string        `mapstructure:"audit_bucket"`
	Expires     time.Duration `mapstructure:"expires"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	UnitAmount    int64  `mapstructure:"unit_amount"`
}

// Load reads configs/config.yaml when present and applies TASKSENSEI_* environment overrides,
// e.g. TASKSENSEI_AUTH_CLIENT_ID for auth.client_id.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TASKSENSEI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "tasksensei.db")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rabbit.url", "")
	v.SetDefault("rabbit.audit_queue", "audit_log")
	v.SetDefault("rabbit.workers", 2)

	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.authorize_url", "")
	v.SetDefault("auth.token_url", "")
	v.SetDefault("auth.redirect_uri", "http://localhost/redirect.html")
	v.SetDefault("auth.dashboard_url", "http://localhost/dashboard")

	v.SetDefault("relay.webhook_url", "")
	v.SetDefault("relay.secret_file", "")
	v.SetDefault("relay.timeout", 10*time.Second)

	v.SetDefault("realtime.require_token", false)

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.audit_bucket", "")
	v.SetDefault("storage.expires", time.Hour)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.success_url", "")
	v.SetDefault("stripe.cancel_url", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.unit_amount", 3900)
}
