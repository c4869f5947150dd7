package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:test-token")
	t.Setenv("TELEGRAM_WEBHOOK_URL", "")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "")
	t.Setenv("ADMIN_IDS", "")
	t.Setenv("COWIN_BASE_URL", "")
	t.Setenv("COWIN_TOKEN", "")
	t.Setenv("ENV", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("LOG_CONSOLE_LEVEL", "")
	t.Setenv("LOG_FILE_LEVEL", "")
	t.Setenv("LOG_FILE", "")
}

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", c.Env)
	assert.Equal(t, "123456:test-token", c.Telegram.Token)
	assert.Equal(t, "https://cdn-api.co-vin.in/api/v2", c.CoWIN.BaseURL)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, "info", c.Log.ConsoleLevel)
	assert.Equal(t, "debug", c.Log.FileLevel)
	assert.Equal(t, "data/logs/bot.log", c.Log.File)
}

func TestLoad_MissingToken(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_WebhookRequiresSecret(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("TELEGRAM_WEBHOOK_URL", "https://bot.example.com/telegram/webhook")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_WEBHOOK_SECRET")
}

func TestLoad_WebhookWithSecret(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("TELEGRAM_WEBHOOK_URL", "https://bot.example.com/telegram/webhook")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", c.Telegram.WebhookSecret)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("LOG_CONSOLE_LEVEL", "verbose")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("ENV", "staging")

	_, err := Load()
	assert.Error(t, err)
}
