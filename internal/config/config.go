package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       *DBconfig
	RabbitMq *RabbitMqconfig
	Srv      *Serviceconfig
	Worker   *Workerconfig
	Cache    *Cacheconfig
	App      *Appconfig
	Log      *Loggerconfig
}

type DBconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}
type RabbitMqconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	Queue    string `yaml:"queue"`
}
type Serviceconfig struct {
	ApiPort string `yaml:"api_port"`
}
type Workerconfig struct {
	Concurrency int `yaml:"concurrency"`
	Prefetch    int `yaml:"prefetch"`
	MaxAttempts int `yaml:"max_attempts"`
	RetryBaseMs int `yaml:"retry_base_ms"`
}
type Cacheconfig struct {
	RedisAddr string `yaml:"redis_addr"`
	TTLSec    int    `yaml:"ttl_sec"`
}
type Appconfig struct {
	JwtSecret string `yaml:"jwt_secret"`
}
type Loggerconfig struct {
	Level string `yaml:"level"`
}

func New() (*Config, error) {
	// .env is optional, real env vars win over it
	_ = godotenv.Load()

	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			fmt.Printf("using default key %v\n", def)
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			fmt.Printf("using default key %v\n", def)
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			fmt.Printf("using default key %v\n", def)
			return def
		}
		return val
	}

	cnf := &Config{
		DB: &DBconfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Database: getEnv("DB_NAME", "fleetflow"),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
			Queue:    getEnv("RABBITMQ_QUEUE", "telemetry_analysis"),
		},
		Srv: &Serviceconfig{
			ApiPort: getEnv("API_PORT", "8000"),
		},
		Worker: &Workerconfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 1),
			Prefetch:    getEnvInt("WORKER_PREFETCH", 1),
			MaxAttempts: getEnvInt("WORKER_MAX_ATTEMPTS", 3),
			RetryBaseMs: getEnvInt("WORKER_RETRY_BASE_MS", 250),
		},
		Cache: &Cacheconfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			TTLSec:    getEnvInt("SCORE_CACHE_TTL_SEC", 3600),
		},
		App: &Appconfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}

	return cnf, nil
}
