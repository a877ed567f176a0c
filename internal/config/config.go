package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config is the resolved application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	CORS      CORSConfig      `yaml:"cors"`
	Social    SocialConfig    `yaml:"social"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Mode string `yaml:"mode"` // debug, release, test
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // mysql or sqlite
	DSN             string `yaml:"dsn"`
	Host            string `yaml:"host"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	Port            int    `yaml:"port"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Password string `yaml:"password"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Enabled  bool   `yaml:"enabled"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"` // seconds
}

type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"` // comma separated
}

// Origins splits AllowOrigins into trimmed, non-empty entries
func (c CORSConfig) Origins() []string {
	if c.AllowOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowOrigins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// SocialConfig tunes the friend graph and conversation engine
type SocialConfig struct {
	OrganizerIDs       []string `yaml:"organizer_ids"`
	ViewMaxConcurrency int      `yaml:"view_max_concurrency"`
	MessageMaxLength   int      `yaml:"message_max_length"`
	MessagePageLimit   int      `yaml:"message_page_limit"`
	ViewCacheTTL       int      `yaml:"view_cache_ttl"` // seconds
}

type RateLimitConfig struct {
	MessagesPerMinute int `yaml:"messages_per_minute"`
}

// Load reads the YAML file at path, expands ${VAR} references and applies
// environment overrides and defaults
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8082
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 3306
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 50
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.JWT.ExpiresIn == 0 {
		cfg.JWT.ExpiresIn = 900
	}
	if cfg.Social.ViewMaxConcurrency <= 0 {
		cfg.Social.ViewMaxConcurrency = 8
	}
	if cfg.Social.MessageMaxLength <= 0 {
		cfg.Social.MessageMaxLength = 2000
	}
	if cfg.Social.MessagePageLimit <= 0 {
		cfg.Social.MessagePageLimit = 50
	}
	if cfg.Social.ViewCacheTTL <= 0 {
		cfg.Social.ViewCacheTTL = 600
	}
	if cfg.RateLimit.MessagesPerMinute <= 0 {
		cfg.RateLimit.MessagesPerMinute = 30
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required (set JWT_SECRET)")
	}
	for _, id := range c.Social.OrganizerIDs {
		if !domain.ValidAccountID(id) {
			return fmt.Errorf("social.organizer_ids: invalid account id %q", id)
		}
	}
	return nil
}

// MySQLDSN builds the MySQL DSN unless one was given explicitly
func (d DatabaseConfig) MySQLDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsOrganizer reports whether id is configured as an organizer account
func (s SocialConfig) IsOrganizer(id string) bool {
	for _, o := range s.OrganizerIDs {
		if o == id {
			return true
		}
	}
	return false
}

// LogResolved prints the effective configuration with secrets masked
func LogResolved(cfg *Config) {
	pkglogger.Info("config: server port=%d mode=%s", cfg.Server.Port, cfg.Server.Mode)
	if cfg.Database.Driver == "sqlite" {
		pkglogger.Info("config: database driver=sqlite dsn=%s", cfg.Database.DSN)
	} else {
		pkglogger.Info("config: database driver=mysql host=%s port=%d name=%s user=%s password=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, cfg.Database.User, mask(cfg.Database.Password))
	}
	pkglogger.Info("config: redis enabled=%t host=%s port=%d db=%d", cfg.Redis.Enabled, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)
	pkglogger.Info("config: jwt secret=%s expires_in=%ds", mask(cfg.JWT.Secret), cfg.JWT.ExpiresIn)
	pkglogger.Info("config: social view_max_concurrency=%d message_max_length=%d organizers=%d",
		cfg.Social.ViewMaxConcurrency, cfg.Social.MessageMaxLength, len(cfg.Social.OrganizerIDs))
}

func mask(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}
