package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Points   PointsConfig   `yaml:"points"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Auth     AuthConfig     `yaml:"auth"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type AppConfig struct {
	Env         string `yaml:"env"`
	Currency    string `yaml:"currency"`
	DeliveryFee int64  `yaml:"delivery_fee"`
	PrepMinutes int    `yaml:"prep_minutes"`
}

// IsProduction reports whether internal error detail must be hidden from clients.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type PointsConfig struct {
	ValueAmount     int64 `yaml:"value_amount"`
	ValuePoints     int64 `yaml:"value_points"`
	EarnRate        int64 `yaml:"earn_rate"`
	SignupBonus     int64 `yaml:"signup_bonus"`
	FirstOrderBonus int64 `yaml:"first_order_bonus"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Addr              string `yaml:"addr"`
	Password          string `yaml:"password"`
	DB                int    `yaml:"db"`
	MenuTTLSeconds    int    `yaml:"menu_ttl_seconds"`
	WebhookTTLSeconds int    `yaml:"webhook_ttl_seconds"`
}

func (r RedisConfig) MenuTTL() time.Duration {
	return time.Duration(r.MenuTTLSeconds) * time.Second
}

func (r RedisConfig) WebhookTTL() time.Duration {
	return time.Duration(r.WebhookTTLSeconds) * time.Second
}

type GatewayConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ReturnURL      string `yaml:"return_url"`
	CancelURL      string `yaml:"cancel_url"`
	NotifyURL      string `yaml:"notify_url"`
}

func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type HTTPConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		App: AppConfig{
			Env:         "development",
			Currency:    "XAF",
			DeliveryFee: 2000,
			PrepMinutes: 45,
		},
		Points: PointsConfig{
			ValueAmount:     1000,
			ValuePoints:     15,
			EarnRate:        1000,
			SignupBonus:     10,
			FirstOrderBonus: 20,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "foodorder",
			Database: "foodorder",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			User: "guest",
		},
		Redis: RedisConfig{
			Addr:              "localhost:6379",
			MenuTTLSeconds:    600,
			WebhookTTLSeconds: 86400,
		},
		Gateway: GatewayConfig{
			TimeoutSeconds: 15,
		},
		HTTP: HTTPConfig{
			RatePerSecond: 10,
			Burst:         20,
		},
	}
}

// Load reads the YAML file at path on top of Default and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Gateway.APIKey, "GATEWAY_API_KEY")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c *Config) Validate() error {
	if c.Points.ValueAmount <= 0 || c.Points.ValuePoints <= 0 {
		return errors.New("points.value_amount and points.value_points must be positive")
	}
	if c.Points.EarnRate <= 0 {
		return errors.New("points.earn_rate must be positive")
	}
	if c.Points.SignupBonus < 0 || c.Points.FirstOrderBonus < 0 {
		return errors.New("referral bonuses must not be negative")
	}
	if c.App.DeliveryFee < 0 {
		return errors.New("app.delivery_fee must not be negative")
	}
	if c.App.Currency == "" {
		return errors.New("app.currency is required")
	}
	if c.Gateway.TimeoutSeconds <= 0 {
		return errors.New("gateway.timeout_seconds must be positive")
	}
	return nil
}
