package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Email    EmailConfig    `yaml:"email"`
	Session  SessionConfig  `yaml:"session"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"` // public URL used in confirmation links
}

// GetHost returns the bind host, defaulting to localhost
func (s ServerConfig) GetHost() string {
	if s.Host == "" {
		return "127.0.0.1"
	}
	return s.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds Redis connection settings for the session store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EmailConfig holds outbound mail gateway settings
type EmailConfig struct {
	BaseURL       string `yaml:"base_url"`
	SenderEmail   string `yaml:"sender_email"`
	AuthToken     string `yaml:"auth_token"`
	SendTimeoutMS int    `yaml:"send_timeout_ms"`
}

// SendTimeout returns the send timeout as a duration
func (e EmailConfig) SendTimeout() time.Duration {
	if e.SendTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.SendTimeoutMS) * time.Millisecond
}

// SessionConfig holds session cookie and signing settings
type SessionConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie_name"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// TTL returns the session lifetime as a duration
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadFromEnv loads configuration from a YAML file and applies
// environment variable overrides. A .env file is loaded first if present.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if redisPass := os.Getenv("REDIS_PASSWORD"); redisPass != "" {
		cfg.Redis.Password = redisPass
	}
	if baseURL := os.Getenv("APP_BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if token := os.Getenv("EMAIL_AUTH_TOKEN"); token != "" {
		cfg.Email.AuthToken = token
	}
	if sender := os.Getenv("EMAIL_SENDER"); sender != "" {
		cfg.Email.SenderEmail = sender
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.GetHost(), c.Server.Port)
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 3
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 5
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "newsletter_session"
	}
}

// Validate reports configuration that cannot work at runtime
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (or set DATABASE_URL)")
	}
	if c.Email.BaseURL == "" {
		return fmt.Errorf("email.base_url is required")
	}
	if c.Email.SenderEmail == "" {
		return fmt.Errorf("email.sender_email is required")
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 bytes")
	}
	return nil
}
