package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Status   StatusConfig   `json:"status" yaml:"status"`
	Probe    ProbeConfig    `json:"probe" yaml:"probe"`
	Deploy   DeployConfig   `json:"deploy" yaml:"deploy"`
}

type ServerConfig struct {
	BindAddr string `json:"bindAddr" yaml:"bindAddr"`
}

type DatabaseConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"dbname" yaml:"dbname"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"`
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

type StatusConfig struct {
	DispatchInterval string `json:"dispatchInterval" yaml:"dispatchInterval"` // e.g. "15s"
	DispatchBatch    int    `json:"dispatchBatch" yaml:"dispatchBatch"`
	MaxWindowDays    int    `json:"maxWindowDays" yaml:"maxWindowDays"`
	MaxHourlyBuckets int    `json:"maxHourlyBuckets" yaml:"maxHourlyBuckets"`
}

type ProbeConfig struct {
	JobPullLimit int    `json:"jobPullLimit" yaml:"jobPullLimit"`
	JobTTL       string `json:"jobTTL" yaml:"jobTTL"` // e.g. "5m"
}

type DeployConfig struct {
	CorrelationDelay string `json:"correlationDelay" yaml:"correlationDelay"` // e.g. "5m"
	FreezeEnabled    bool   `json:"freezeEnabled" yaml:"freezeEnabled"`
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()
	return LoadFrom(*configFile)
}

// LoadFrom builds the config from env defaults, then overlays the given file
// when non-empty. Split out of Load so tests can bypass flag parsing.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			BindAddr: getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "statuskeep"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Status: StatusConfig{
			DispatchInterval: getEnv("STATUS_DISPATCH_INTERVAL", "15s"),
			DispatchBatch:    getEnvInt("STATUS_DISPATCH_BATCH", 200),
			MaxWindowDays:    getEnvInt("STATUS_MAX_WINDOW_DAYS", 90),
			MaxHourlyBuckets: getEnvInt("STATUS_MAX_HOURLY_BUCKETS", 720),
		},
		Probe: ProbeConfig{
			JobPullLimit: getEnvInt("PROBE_JOB_PULL_LIMIT", 100),
			JobTTL:       getEnv("PROBE_JOB_TTL", "5m"),
		},
		Deploy: DeployConfig{
			CorrelationDelay: getEnv("DEPLOY_CORRELATION_DELAY", "5m"),
			FreezeEnabled:    getEnv("DEPLOY_FREEZE_ENABLED", "true") == "true",
		},
	}

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			log.Err(err)
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Status.DispatchInterval == "" {
		cfg.Status.DispatchInterval = "15s"
	}
	if cfg.Status.DispatchBatch == 0 {
		cfg.Status.DispatchBatch = 200
	}
	if cfg.Status.MaxWindowDays == 0 {
		cfg.Status.MaxWindowDays = 90
	}
	if cfg.Status.MaxHourlyBuckets == 0 {
		cfg.Status.MaxHourlyBuckets = 720
	}
	if cfg.Probe.JobPullLimit == 0 {
		cfg.Probe.JobPullLimit = 100
	}
	if cfg.Probe.JobTTL == "" {
		cfg.Probe.JobTTL = "5m"
	}
	if cfg.Deploy.CorrelationDelay == "" {
		cfg.Deploy.CorrelationDelay = "5m"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if strings.HasSuffix(filePath, ".yaml") || strings.HasSuffix(filePath, ".yml") {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
		}
		return nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
