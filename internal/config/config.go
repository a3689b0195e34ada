// Package config carga la configuración del servicio desde variables de entorno.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// HTTP
	Port string `envconfig:"PORT" default:"8080"`

	// Storage. DB_DSN vacío => repos in-memory (modo dev).
	DBDSN          string `envconfig:"DB_DSN"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"false"`

	// Opcional: cache de explicaciones en Mongo.
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"medication_adherence"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	AppName   string `envconfig:"APP_NAME" default:"medication-adherence"`

	// Fecha local del lector. Vacío => zona del proceso.
	Timezone          string        `envconfig:"TIMEZONE"`
	DateCheckInterval time.Duration `envconfig:"DATE_CHECK_INTERVAL" default:"60s"`

	// Colaboradores externos
	OpenFDABaseURL    string        `envconfig:"OPENFDA_BASE_URL" default:"https://api.fda.gov"`
	OpenFDAAPIKey     string        `envconfig:"OPENFDA_API_KEY"`
	GeminiBaseURL     string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiAPIKey      string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string        `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"15s"`

	// Si viene, se verifican bearer tokens HS256. Si no, modo dev con X-Debug-User-ID.
	JWTSecret string `envconfig:"JWT_SECRET"`
}

// Load procesa el entorno (sin prefijo) y valida lo mínimo.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.DateCheckInterval <= 0 {
		return fmt.Errorf("DATE_CHECK_INTERVAL must be positive")
	}
	if c.HTTPClientTimeout <= 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// NewForTesting arma una config sin leer el entorno.
func NewForTesting() *Config {
	return &Config{
		Port:              "0",
		LogLevel:          "error",
		LogFormat:         "text",
		AppName:           "medication-adherence-test",
		Timezone:          "UTC",
		DateCheckInterval: 60 * time.Second,
		OpenFDABaseURL:    "http://127.0.0.1:0",
		GeminiBaseURL:     "http://127.0.0.1:0",
		GeminiModel:       "test-model",
		HTTPClientTimeout: time.Second,
	}
}
