package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/linemk/coin-ledger/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestMustLoadByPath_Success(t *testing.T) {
	// Устанавливаем обязательные переменные окружения
	os.Setenv("DB_PASSWORD", "mypassword")
	os.Setenv("JWT_SECRET", "mysecret")
	os.Setenv("PAYPRIME_SECRET_KEY", "paysecret")
	defer os.Unsetenv("DB_PASSWORD")
	defer os.Unsetenv("JWT_SECRET")
	defer os.Unsetenv("PAYPRIME_SECRET_KEY")

	// Пример содержимого конфигурационного файла
	content := `
env: "local"
http_server:
  address: "localhost:8080"
  timeout: "4s"
  idle_timeout: "60s"
database:
  host: "localhost"
  port: 5432
  user: "postgres"
  name: "ledger"
jwt:
  token_ttl: 60
payment:
  method: "payprime"
business:
  exchange_rate: "5"
  withdrawal_rate: "0.20"
  currency: "INR"
  tx_max_attempts: 3
migrations:
  path: "./migrations"
`
	// Создаем временный файл с конфигурацией
	tmpFile, err := os.CreateTemp("", "config_test_*.yaml")
	assert.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(content)
	assert.NoError(t, err)
	err = tmpFile.Close()
	assert.NoError(t, err)

	// Загружаем конфигурацию из временного файла
	cfg := config.MustLoadByPath(tmpFile.Name())

	// Проверяем, что конфигурация загружена корректно
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Address)
	assert.Equal(t, 4*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPServer.IdleTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "ledger", cfg.Database.Name)
	assert.Equal(t, 60, cfg.JWT.TokenTTL)
	assert.Equal(t, "paysecret", cfg.Payment.SecretKey)
	assert.Equal(t, "payprime", cfg.Payment.Method)
	assert.Equal(t, "5", cfg.Business.ExchangeRate)
	assert.Equal(t, "0.20", cfg.Business.WithdrawalRate)
	assert.Equal(t, "INR", cfg.Business.Currency)
	assert.Equal(t, 3, cfg.Business.TxMaxAttempts)
	assert.Equal(t, "./migrations", cfg.Migrations.Path)
}

func TestMustLoadByPath_FileNotFound(t *testing.T) {
	// Ожидаем панику, если файла не существует
	assert.Panics(t, func() {
		config.MustLoadByPath("non_existent_config.yaml")
	})
}

func TestMustLoadByPath_DefaultBusinessValues(t *testing.T) {
	os.Setenv("DB_PASSWORD", "mypassword")
	os.Setenv("JWT_SECRET", "mysecret")
	defer os.Unsetenv("DB_PASSWORD")
	defer os.Unsetenv("JWT_SECRET")

	content := `
env: "local"
database:
  user: "postgres"
  name: "ledger"
`
	tmpFile, err := os.CreateTemp("", "config_test_*.yaml")
	assert.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(content)
	assert.NoError(t, err)
	assert.NoError(t, tmpFile.Close())

	cfg := config.MustLoadByPath(tmpFile.Name())

	// бизнес-константы имеют безопасные значения по умолчанию
	assert.Equal(t, "5", cfg.Business.ExchangeRate)
	assert.Equal(t, "0.20", cfg.Business.WithdrawalRate)
	assert.Equal(t, "INR", cfg.Business.Currency)
	assert.Equal(t, 3, cfg.Business.TxMaxAttempts)
}
