package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
env: production
telegram:
  token: yaml-token
database:
  dsn: postgres://bot@localhost/dorm
chats:
  group: -1001
  admin: -1002
requests:
  life_hours: 24
moderation:
  refuse_reasons:
    - "Нет в списках"
    - "  "
    - "Фото нечитаемо"
media:
  assets:
    greeting: assets/greeting.jpg
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_YAMLWithEnvOverlay(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("METRICS_ADDR", ":9090")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, int64(-1001), cfg.Chats.Group)
	assert.Equal(t, int64(-1002), cfg.Chats.Admin)
	assert.Equal(t, 24, cfg.Requests.LifeHours)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval())
	assert.Equal(t, []string{"Нет в списках", "Фото нечитаемо"}, cfg.Moderation.RefuseReasons)
	assert.Equal(t, "ru", cfg.Moderation.Lang)
	assert.Equal(t, StoragePostgres, cfg.FSM.Storage)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, 64, cfg.Media.CacheSize)
	assert.Equal(t, map[string]string{"greeting": "assets/greeting.jpg"}, cfg.Media.Assets)
}

func TestLoadFile_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("ADMIN_CHAT_ID", "-42")
	t.Setenv("FSM_STORAGE", "memory")
	t.Setenv("REFUSE_REASONS", "one,two")
	t.Setenv("DB_DSN", "postgres://bot@localhost/dorm")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, int64(-42), cfg.Chats.Admin)
	assert.Equal(t, StorageMemory, cfg.FSM.Storage)
	assert.Equal(t, []string{"one", "two"}, cfg.Moderation.RefuseReasons)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadFile_BadYAML(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "telegram: [oops"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func validConfig() *Config {
	return &Config{
		Telegram:   TelegramConfig{Token: "t"},
		Database:   DatabaseConfig{DSN: "postgres://"},
		Chats:      ChatsConfig{Admin: -1},
		Moderation: ModerationConfig{RefuseReasons: []string{"reason"}},
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no token", func(c *Config) { c.Telegram.Token = " " }, "telegram.token"},
		{"no admin chat", func(c *Config) { c.Chats.Admin = 0 }, "chats.admin"},
		{"no dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"no dsn for memory sessions", func(c *Config) { c.Database.DSN = ""; c.FSM.Storage = "memory" }, "database.dsn"},
		{"memory sessions", func(c *Config) { c.FSM.Storage = "Memory" }, ""},
		{"bad storage", func(c *Config) { c.FSM.Storage = "redis" }, "fsm.storage"},
		{"negative life", func(c *Config) { c.Requests.LifeHours = -1 }, "life_hours"},
		{"negative interval", func(c *Config) { c.Requests.SweepIntervalSeconds = -5 }, "sweep_interval_seconds"},
		{"no reasons", func(c *Config) { c.Moderation.RefuseReasons = nil }, "refuse_reasons"},
		{"too many reasons", func(c *Config) { c.Moderation.RefuseReasons = strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",") }, "at most 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Normalize(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalize_Nil(t *testing.T) {
	assert.Error(t, Normalize(nil))
}
