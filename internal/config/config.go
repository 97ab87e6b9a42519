// Package config 从 config.yml、.env 和环境变量加载服务配置
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAccessSecret  = "secret-key"
	defaultRefreshSecret = "refresh-key"
)

type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDSN    string `mapstructure:"DB_DSN"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTAccessSecret  string `mapstructure:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	AdminEmails      string `mapstructure:"ADMIN_EMAILS"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	GCSBucket          string `mapstructure:"GCS_BUCKET"`
	GCSCredentialsFile string `mapstructure:"GCS_CREDENTIALS_FILE"`

	LedgerMaxAttempts int           `mapstructure:"LEDGER_MAX_ATTEMPTS"`
	GuardTTL          time.Duration `mapstructure:"GUARD_TTL"`
	OutboxInterval    time.Duration `mapstructure:"OUTBOX_INTERVAL"`
	ReconcileInterval time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	AllowedOrigins    string        `mapstructure:"ALLOWED_ORIGINS"`

	// EnvFileLoaded 是否读到了 .env，由调用方在日志初始化后记录
	EnvFileLoaded bool `mapstructure:"-"`
}

// LoadConfig 读取配置；.env 和 config.yml 都是可选的
func LoadConfig() (*Config, error) {
	envLoaded := godotenv.Load() == nil

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.EnvFileLoaded = envLoaded
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_DSN", "user:password@tcp(127.0.0.1:3306)/community?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ACCESS_SECRET", defaultAccessSecret)
	v.SetDefault("JWT_REFRESH_SECRET", defaultRefreshSecret)
	v.SetDefault("ADMIN_EMAILS", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "community.ledger")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "NoReply <no-reply@example.com>")
	v.SetDefault("GCS_BUCKET", "")
	v.SetDefault("GCS_CREDENTIALS_FILE", "")
	v.SetDefault("LEDGER_MAX_ATTEMPTS", 5)
	v.SetDefault("GUARD_TTL", "5s")
	v.SetDefault("OUTBOX_INTERVAL", "1s")
	v.SetDefault("RECONCILE_INTERVAL", "5m")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
}

// Validate 检查必填项，生产环境不允许使用默认密钥
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("DB_DSN is required")
	}
	if c.LedgerMaxAttempts < 1 {
		return errors.New("LEDGER_MAX_ATTEMPTS must be at least 1")
	}
	if c.GuardTTL <= 0 {
		return errors.New("GUARD_TTL must be positive")
	}
	if c.IsProduction() {
		if c.JWTAccessSecret == defaultAccessSecret || c.JWTRefreshSecret == defaultRefreshSecret {
			return errors.New("JWT secrets must be set in production")
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) AdminEmailList() []string {
	return splitList(c.AdminEmails)
}

func (c *Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

func (c *Config) AllowedOriginList() []string {
	return splitList(c.AllowedOrigins)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
