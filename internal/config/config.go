package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	// MaxRefuseReasons индекс причины хранится одной цифрой в callback_data
	MaxRefuseReasons = 10
)

type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"TELEGRAM_TOKEN"`
}

type DatabaseConfig struct {
	DSN           string `yaml:"dsn" envconfig:"DB_DSN"`
	MigrationsDir string `yaml:"migrations_dir" envconfig:"MIGRATIONS_DIR"`
}

// ChatsConfig чаты бота: группа общежития, чат администраторов, чат для отчётов об ошибках
type ChatsConfig struct {
	Group int64 `yaml:"group" envconfig:"GROUP_CHAT_ID"`
	Admin int64 `yaml:"admin" envconfig:"ADMIN_CHAT_ID"`
	Debug int64 `yaml:"debug" envconfig:"DEBUG_CHAT_ID"`
}

type RequestsConfig struct {
	LifeHours            int `yaml:"life_hours" envconfig:"REQUEST_LIFE_HOURS"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds" envconfig:"SWEEP_INTERVAL_SECONDS"`
}

type ModerationConfig struct {
	RefuseReasons []string `yaml:"refuse_reasons" envconfig:"REFUSE_REASONS"`
	Lang          string   `yaml:"lang" envconfig:"ADMIN_LANG"`
}

type FSMConfig struct {
	Storage string `yaml:"storage" envconfig:"FSM_STORAGE"`
}

type MediaConfig struct {
	CacheSize int               `yaml:"cache_size" envconfig:"MEDIA_CACHE_SIZE"`
	Assets    map[string]string `yaml:"assets" ignored:"true"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"METRICS_ADDR"`
}

type Config struct {
	Environment string           `yaml:"env" envconfig:"ENV"`
	Telegram    TelegramConfig   `yaml:"telegram"`
	Database    DatabaseConfig   `yaml:"database"`
	Chats       ChatsConfig      `yaml:"chats"`
	Requests    RequestsConfig   `yaml:"requests"`
	Moderation  ModerationConfig `yaml:"moderation"`
	FSM         FSMConfig        `yaml:"fsm"`
	Media       MediaConfig      `yaml:"media"`
	Metrics     MetricsConfig    `yaml:"metrics"`
}

// Load читает .env, YAML из CONFIG_PATH (по умолчанию config.yaml) и переменные окружения.
// Отсутствие файлов не ошибка.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFile(path)
}

// LoadFile читает YAML и накладывает поверх переменные окружения
func LoadFile(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize проверяет обязательные поля и выставляет значения по умолчанию
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if cfg.Chats.Admin == 0 {
		return fmt.Errorf("chats.admin is required")
	}

	storage := strings.ToLower(strings.TrimSpace(cfg.FSM.Storage))
	if storage == "" {
		storage = StoragePostgres
	}
	switch storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("invalid fsm.storage %q; allowed: postgres, memory", cfg.FSM.Storage)
	}
	cfg.FSM.Storage = storage

	// Заявки и анкеты хранятся в Postgres при любом fsm.storage
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Database.MigrationsDir == "" {
		cfg.Database.MigrationsDir = "migrations"
	}

	if cfg.Requests.LifeHours == 0 {
		cfg.Requests.LifeHours = 48
	}
	if cfg.Requests.LifeHours < 0 {
		return fmt.Errorf("requests.life_hours must be > 0")
	}
	if cfg.Requests.SweepIntervalSeconds == 0 {
		cfg.Requests.SweepIntervalSeconds = 600
	}
	if cfg.Requests.SweepIntervalSeconds < 0 {
		return fmt.Errorf("requests.sweep_interval_seconds must be > 0")
	}

	reasons := cfg.Moderation.RefuseReasons[:0]
	for _, r := range cfg.Moderation.RefuseReasons {
		if r = strings.TrimSpace(r); r != "" {
			reasons = append(reasons, r)
		}
	}
	if len(reasons) == 0 {
		return fmt.Errorf("moderation.refuse_reasons must contain at least one reason")
	}
	if len(reasons) > MaxRefuseReasons {
		return fmt.Errorf("moderation.refuse_reasons allows at most %d reasons, got %d", MaxRefuseReasons, len(reasons))
	}
	cfg.Moderation.RefuseReasons = reasons
	if cfg.Moderation.Lang == "" {
		cfg.Moderation.Lang = "ru"
	}

	if cfg.Media.CacheSize == 0 {
		cfg.Media.CacheSize = 64
	}
	if cfg.Media.CacheSize < 0 {
		return fmt.Errorf("media.cache_size must be > 0")
	}
	return nil
}

// SweepInterval интервал между проходами чистильщика
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Requests.SweepIntervalSeconds) * time.Second
}

// IsProduction проверяет окружение
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
