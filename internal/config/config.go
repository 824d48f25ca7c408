package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config содержит все конфигурационные параметры приложения
type Config struct {
	Engine  EngineConfig
	Say     SayConfig
	App     AppConfig
	Metrics MetricsConfig
}

// EngineConfig содержит настройки подключения к движку VOICEVOX
type EngineConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// SayConfig содержит значения по умолчанию для команды say
type SayConfig struct {
	Speaker string
	Output  string
}

type AppConfig struct {
	Env      string
	LogLevel string
	LogFile  string
}

// MetricsConfig содержит настройки выгрузки метрик
type MetricsConfig struct {
	TextfilePath string
}

// Load загружает конфигурацию из переменных окружения и .env
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Engine
	cfg.Engine.Host = getEnvDefault("VOICEVOX_HOST", "127.0.0.1")
	cfg.Engine.Port = getEnvIntDefault("VOICEVOX_PORT", 50021)
	cfg.Engine.Timeout = getEnvDurationDefault("VOICEVOX_TIMEOUT", 30*time.Second)

	// Say
	cfg.Say.Speaker = getEnvDefault("VOXMIX_SPEAKER", "ずんだもん")
	cfg.Say.Output = getEnvDefault("VOXMIX_OUTPUT", "out.wav")

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvDefault("LOG_LEVEL", "info")
	cfg.App.LogFile = os.Getenv("LOG_FILE")

	// Metrics
	cfg.Metrics.TextfilePath = os.Getenv("METRICS_TEXTFILE")

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if config.Engine.Host == "" {
		return fmt.Errorf("VOICEVOX_HOST не установлен")
	}
	if config.Engine.Port < 1 || config.Engine.Port > 65535 {
		return fmt.Errorf("VOICEVOX_PORT должен быть в диапазоне 1-65535")
	}
	if config.Engine.Timeout <= 0 {
		return fmt.Errorf("VOICEVOX_TIMEOUT должен быть положительным")
	}
	switch config.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("поддерживаются только LOG_LEVEL: debug, info, warn, error")
	}

	return nil
}

// BaseURL возвращает адрес движка в формате http://host:port
func (c *EngineConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// IsDevelopment проверяет, запущено ли приложение в режиме разработки
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction проверяет, запущено ли приложение в продакшн режиме
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// GetLogLevel возвращает уровень логирования в формате zap
func (c *AppConfig) GetLogLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
