// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Режимы хранилища учётных записей и реестра отзыва.
const (
	StoreModePostgres = "postgres"
	StoreModeMemory   = "memory"

	LedgerModeRedis  = "redis"
	LedgerModeMemory = "memory"
)

// minJWTSecretLen — минимальная длина ключа подписи в байтах.
const minJWTSecretLen = 32

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	Store    StoreConfig   `yaml:"store"`
	Ledger   LedgerConfig  `yaml:"ledger"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// HTTPConfig — сетевые настройки служебного HTTP-сервера
// (livez/healthz/metrics).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50082"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	// JWTSecret — процессный ключ подписи HS256; не короче 32 байт.
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	// AccessTokenTTL — срок жизни access-токена (коротко, минуты).
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	// RefreshTokenTTL — срок жизни refresh-токена (долго, дни/недели).
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"720h"`
	Issuer          string        `yaml:"issuer"   env:"ISSUER" env-default:"auth-service"`
	Audience        []string      `yaml:"audience" env:"AUDIENCE" env-default:"dashboard-api"`
	// RecheckPrincipal — сверять ли principal с хранилищем на каждом
	// Authenticate. Компромисс: лишнее чтение на запрос против более
	// свежих роли/статуса. По умолчанию выключено — допустимая
	// несвежесть ограничена сроком жизни access-токена.
	RecheckPrincipal bool `yaml:"recheck_principal" env:"RECHECK_PRINCIPAL" env-default:"false"`
}

// StoreConfig — выбор и настройки хранилища учётных записей.
type StoreConfig struct {
	Mode        string `yaml:"mode" env:"STORE_MODE" env-default:"postgres"`
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
}

// LedgerConfig — выбор и настройки реестра отозванных токенов.
type LedgerConfig struct {
	Mode     string `yaml:"mode" env:"LEDGER_MODE" env-default:"redis"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

// TimeoutConfig — таймауты обращений к коллабораторам.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		c, err := tryRead(path)
		if err != nil {
			return nil, err
		}

		return c.validated()
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		c, err := tryRead(envPath)
		if err != nil {
			return nil, err
		}

		return c.validated()
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return cfg.validated()
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return cfg.validated()
}

// validated возвращает конфигурацию либо ошибку валидации.
func (c *Config) validated() (*Config, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// validate проверяет согласованность конфигурации до старта сервиса.
func (c *Config) validate() error {
	if len(c.Auth.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minJWTSecretLen)
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth token TTLs must be positive")
	}

	switch c.Store.Mode {
	case StoreModePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.db_url is required for mode %q", StoreModePostgres)
		}
	case StoreModeMemory:
	default:
		return fmt.Errorf("unknown store.mode %q", c.Store.Mode)
	}

	switch c.Ledger.Mode {
	case LedgerModeRedis:
		if c.Ledger.RedisURL == "" {
			return fmt.Errorf("ledger.redis_url is required for mode %q", LedgerModeRedis)
		}
	case LedgerModeMemory:
	default:
		return fmt.Errorf("unknown ledger.mode %q", c.Ledger.Mode)
	}

	return nil
}
