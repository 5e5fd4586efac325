// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища кеша запросов.
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// Config общая структура для хранения настроек
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	JWTToken   `yaml:"jwttoken"`
	Backend    `yaml:"backend"`
	Frontend   `yaml:"frontend"`
	Cache      `yaml:"cache"`
	RabbitMQ   `yaml:"rabbitmq"`
	CORS       `yaml:"cors"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP    string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP    time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RegisterRPS    float64       `yaml:"register_rps" env-default:"1"`
	RegisterBurst  int           `yaml:"register_burst" env-default:"5"`
	ShutdownPeriod time.Duration `yaml:"shutdown_period" env-default:"10s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
	CookieName   string        `yaml:"cookie_name" env-default:"fintrack_session"`
}

// Backend адрес внешнего REST API.
type Backend struct {
	BaseURL         string        `yaml:"base_url" env:"BACKEND_URL" env-default:"http://localhost:5000"`
	Timeout         time.Duration `yaml:"timeout" env-default:"10s"`
	RegisterTimeout time.Duration `yaml:"register_timeout" env:"REGISTER_TIMEOUT" env-default:"15s"`
}

// Frontend адрес сервера, отрисовывающего страницы.
type Frontend struct {
	UpstreamURL string `yaml:"upstream_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
}

// Cache выбор хранилища кеша запросов.
type Cache struct {
	Driver          string        `yaml:"driver" env:"CACHE_DRIVER" env-default:"memory"`
	GCTime          time.Duration `yaml:"gc_time" env-default:"5m"`
	GCInterval      time.Duration `yaml:"gc_interval" env-default:"1m"`
	RedisConnection `yaml:"redis_connection"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	EntryTTL     time.Duration `yaml:"entry_ttl" env-default:"10m"`
}

// RabbitMQ настройки публикации событий администрирования.
// Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"fintrack.admin"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	AuditQueue string        `yaml:"audit_queue" env:"RABBITMQ_AUDIT_QUEUE"`
}

// CORS разрешённые источники для /api/v1.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и переменных окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("%s: jwt_secret_key is required", op)
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case CacheDriverMemory, CacheDriverRedis:
		cfg.Driver = driver
	default:
		return nil, fmt.Errorf("%s: unknown cache driver %q", op, cfg.Driver)
	}
	if cfg.Driver == CacheDriverRedis && cfg.AddressRedis == "" {
		return nil, fmt.Errorf("%s: cache.redis_connection.addressredis is required for redis driver", op)
	}
	return &cfg, nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"  CookieName: %s\n"+
			"Backend:\n"+
			"  BaseURL: %s\n"+
			"  Timeout: %s\n"+
			"  RegisterTimeout: %s\n"+
			"Frontend:\n"+
			"  UpstreamURL: %s\n"+
			"Cache:\n"+
			"  Driver: %s\n"+
			"  GCTime: %s\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"  EntryTTL: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  Exchange: %s\n"+
			"CORS:\n"+
			"  AllowedOrigins: %s\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		mask(c.JWTSecretKey),
		c.TokenTTL,
		c.CookieName,
		c.BaseURL,
		c.Backend.Timeout,
		c.RegisterTimeout,
		c.UpstreamURL,
		c.Driver,
		c.GCTime,
		c.AddressRedis,
		mask(c.Password),
		c.DB,
		c.EntryTTL,
		mask(c.RabbitMQ.URL),
		c.Exchange,
		strings.Join(c.AllowedOrigins, ","),
	)
}
