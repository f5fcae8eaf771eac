package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config — полная конфигурация проекта
type Config struct {
	Database   DBConfig
	RabbitMQ   MQConfig
	Redis      RedisConfig
	Services   ServicesConfig
	JWT        JWTConfig
	Dealership DealershipConfig
	Scheduler  SchedulerConfig
	Identity   IdentityConfig
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type MQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServicesConfig struct {
	VehicleServicePort  int `yaml:"vehicle_service"`
	IdentityServicePort int `yaml:"identity_service"`
}

type JWTConfig struct {
	Secret        string `yaml:"secret"`
	ExpiryMinutes int    `yaml:"expiry_minutes"`
	Issuer        string `yaml:"issuer"`
}

// DealershipConfig описывает единственного дилера, выкупающего автомобили
type DealershipConfig struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Timezone string `yaml:"timezone"`
}

// SchedulerConfig — периоды фоновых задач
type SchedulerConfig struct {
	ReminderInterval   time.Duration `yaml:"reminder_interval"`
	CompletionInterval time.Duration `yaml:"completion_interval"`
	CompletionGrace    time.Duration `yaml:"completion_grace"`
	UnblockInterval    time.Duration `yaml:"unblock_interval"`
	BirthdayInterval   time.Duration `yaml:"birthday_interval"`
}

// IdentityConfig — параметры блокировки и OTP
type IdentityConfig struct {
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	BlockDuration    time.Duration `yaml:"block_duration"`
	OTPTTL           time.Duration `yaml:"otp_ttl"`
	MaxOTPAttempts   int           `yaml:"max_otp_attempts"` // промахов до сжигания кода
}

// Location возвращает часовой пояс дилерского центра (UTC, если не задан или некорректен)
func (c DealershipConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load — загрузка из CONFIG_DIR (по умолчанию ./config) + ENV перекрывает.
// Перед чтением подхватывается .env, если он есть.
func Load() Config {
	_ = godotenv.Load()
	cfg, _ := LoadFrom(getEnv("CONFIG_DIR", "./config"))
	return cfg
}

// LoadFrom читает yaml файлы из каталога. Отсутствующий файл не ошибка,
// некорректный yaml возвращается как ошибка вместе с конфигом по умолчанию.
func LoadFrom(dir string) (Config, error) {
	cfg := Defaults()
	var errs []error

	files := []struct {
		name string
		dst  any
	}{
		{"db.yaml", &cfg.Database},
		{"mq.yaml", &cfg.RabbitMQ},
		{"redis.yaml", &cfg.Redis},
		{"service.yaml", &struct {
			Services   *ServicesConfig   `yaml:"services"`
			Dealership *DealershipConfig `yaml:"dealership"`
			Scheduler  *SchedulerConfig  `yaml:"scheduler"`
			Identity   *IdentityConfig   `yaml:"identity"`
		}{&cfg.Services, &cfg.Dealership, &cfg.Scheduler, &cfg.Identity}},
		{"jwt.yaml", &struct {
			JWT *JWTConfig `yaml:"jwt"`
		}{&cfg.JWT}},
	}

	for _, f := range files {
		if err := readYAML(filepath.Join(dir, f.name), f.dst); err != nil {
			errs = append(errs, err)
		}
	}

	applyEnv(&cfg)
	return cfg, errors.Join(errs...)
}

// Defaults возвращает значения по умолчанию
func Defaults() Config {
	return Config{
		Database: DBConfig{
			Host: "localhost", Port: 5432,
			User: "carmarket_user", Password: "carmarket_pass",
			Database: "carmarket_db", SSLMode: "disable",
		},
		RabbitMQ: MQConfig{Host: "localhost", Port: 5672, User: "guest", Password: "guest", VHost: "/"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Services: ServicesConfig{VehicleServicePort: 3000, IdentityServicePort: 3001},
		JWT:      JWTConfig{Secret: "dev_secret", ExpiryMinutes: 24 * 60, Issuer: "carmarket"},
		Dealership: DealershipConfig{
			Name:     "KP Group",
			Address:  "A-22(KP-Group), Mall Road, Near NCR, Delhi",
			Timezone: "UTC",
		},
		Scheduler: SchedulerConfig{
			ReminderInterval:   time.Minute,
			CompletionInterval: time.Minute,
			CompletionGrace:    time.Hour,
			UnblockInterval:    time.Hour,
			BirthdayInterval:   24 * time.Hour,
		},
		Identity: IdentityConfig{
			MaxLoginAttempts: 5,
			BlockDuration:    12 * time.Hour,
			OTPTTL:           2 * time.Minute,
			MaxOTPAttempts:   5,
		},
	}
}

func readYAML(path string, dst any) error {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", cfg.RabbitMQ.Host)
	cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", cfg.RabbitMQ.Port)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", cfg.RabbitMQ.User)
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", cfg.RabbitMQ.Password)
	cfg.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", cfg.RabbitMQ.VHost)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.Services.VehicleServicePort = getEnvInt("VEHICLE_SERVICE_PORT", cfg.Services.VehicleServicePort)
	cfg.Services.IdentityServicePort = getEnvInt("IDENTITY_SERVICE_PORT", cfg.Services.IdentityServicePort)

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.ExpiryMinutes = getEnvInt("JWT_EXPIRY_MINUTES", cfg.JWT.ExpiryMinutes)

	cfg.Dealership.Name = getEnv("DEALER_NAME", cfg.Dealership.Name)
	cfg.Dealership.Address = getEnv("DEALER_ADDRESS", cfg.Dealership.Address)
	cfg.Dealership.Timezone = getEnv("DEALER_TIMEZONE", cfg.Dealership.Timezone)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// DSN возвращает строку подключения к БД
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// AMQPURL возвращает URL подключения к RabbitMQ
func (c MQConfig) AMQPURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}
