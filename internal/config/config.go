package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env             string             `yaml:"env" env:"ENV" env-default:"local"`
	DefaultCurrency string             `yaml:"default_currency" env-default:"USD"`
	RatesTTL        time.Duration      `yaml:"rates_ttl" env-default:"72h"`
	HTTP            HTTPConfig         `yaml:"http"`
	Storage         StorageConfig      `yaml:"storage"`
	JWT             JWTConfig          `yaml:"jwt"`
	Gemini          GeminiConfig       `yaml:"gemini"`
	ExchangeRate    ExchangeRateConfig `yaml:"exchange_rate"`
}

type HTTPConfig struct {
	Port    int           `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type StorageConfig struct {
	Type   string       `yaml:"type" env:"STORAGE_TYPE" env-default:"mongo"`
	Mongo  MongoConfig  `yaml:"mongo"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"expenso"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	AccessTTL  time.Duration `yaml:"access_ttl" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env-default:"168h"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key" env:"GOOGLE_API_KEY"`
	Model  string `yaml:"model" env-default:"gemini-2.5-flash"`
}

type ExchangeRateConfig struct {
	APIKey  string `yaml:"api_key" env:"EXCHANGE_RATE_API_KEY"`
	BaseURL string `yaml:"base_url" env-default:"https://v6.exchangerate-api.com"`
}

func LoadConfig(path string) *Config {
	_ = godotenv.Load()

	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file not found: " + path)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}
