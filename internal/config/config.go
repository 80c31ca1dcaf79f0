package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Payment    PaymentConfig    `yaml:"payment"`
	Business   BusinessConfig   `yaml:"business"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

// PaymentConfig настройка платёжного провайдера.
// Секрет сознательно не обязателен при старте: его отсутствие — это
// конфигурационный сбой конкретного IPN-запроса (ответ 500), а не падение сервиса.
type PaymentConfig struct {
	SecretKey string `yaml:"-" env:"PAYPRIME_SECRET_KEY"`
	Method    string `yaml:"method" env-default:"payprime"`
}

// BusinessConfig — денежные константы валютной модели.
type BusinessConfig struct {
	// ExchangeRate: 1 UCoin -> ExchangeRate CCoins при переводе подарка (десятичная строка)
	ExchangeRate string `yaml:"exchange_rate" env-default:"5"`
	// WithdrawalRate: стоимость одного CCoin в валюте выплат (десятичная строка)
	WithdrawalRate string `yaml:"withdrawal_rate" env-default:"0.20"`
	Currency       string `yaml:"currency" env-default:"INR"`
	// TxMaxAttempts — предел повторов транзакции при конфликте конкурентного доступа
	TxMaxAttempts int `yaml:"tx_max_attempts" env-default:"3"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
