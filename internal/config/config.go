package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr    string        `json:"addr"`
	DataDir string        `json:"data_dir"`
	AI      AIConfig      `json:"ai"`
	Azure   AzureConfig   `json:"azure"`
	LogSink LogSinkConfig `json:"logsink"`
	Tracing TracingConfig `json:"tracing"`
}

type AIConfig struct {
	// DefaultCredential seeds the built-in gemini provider when no provider config has been saved yet.
	DefaultCredential string        `json:"-"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	MaxRetries        int           `json:"max_retries"`
	// ConfigPassphrase encrypts the stored provider config (it holds credentials) when set.
	ConfigPassphrase string `json:"-"`
	ImageMaxDim      int    `json:"image_max_dim"`
}

type AzureConfig struct {
	AccountName string `json:"account_name"`
	AccountKey  string `json:"-"`
	Container   string `json:"container"`
}

func (a AzureConfig) Enabled() bool {
	return a.AccountName != "" && a.AccountKey != ""
}

type LogSinkConfig struct {
	Container string `json:"container"`
}

type TracingConfig struct {
	Endpoint    string `json:"endpoint"`
	ServiceName string `json:"service_name"`
}

func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

func Load() (*Config, error) {
	// .env is optional; anything already in the environment wins.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	timeout, err := time.ParseDuration(getEnvOrDefault("REFRIGEE_REQUEST_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRIGEE_REQUEST_TIMEOUT: %w", err)
	}
	retries, err := strconv.Atoi(getEnvOrDefault("REFRIGEE_MAX_RETRIES", "2"))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("invalid REFRIGEE_MAX_RETRIES %q", os.Getenv("REFRIGEE_MAX_RETRIES"))
	}
	maxDim, err := strconv.Atoi(getEnvOrDefault("REFRIGEE_IMAGE_MAX_DIM", "1024"))
	if err != nil || maxDim <= 0 {
		return nil, fmt.Errorf("invalid REFRIGEE_IMAGE_MAX_DIM %q", os.Getenv("REFRIGEE_IMAGE_MAX_DIM"))
	}

	config := &Config{
		Addr:    getEnvOrDefault("REFRIGEE_ADDR", ":8080"),
		DataDir: getEnvOrDefault("REFRIGEE_DATA_DIR", "./data"),
		AI: AIConfig{
			DefaultCredential: os.Getenv("REFRIGEE_GEMINI_API_KEY"),
			RequestTimeout:    timeout,
			MaxRetries:        retries,
			ConfigPassphrase:  os.Getenv("REFRIGEE_CONFIG_PASSPHRASE"),
			ImageMaxDim:       maxDim,
		},
		Azure: AzureConfig{
			AccountName: os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
			AccountKey:  os.Getenv("AZURE_STORAGE_PRIMARY_ACCOUNT_KEY"),
			Container:   getEnvOrDefault("AZURE_STORAGE_CONTAINER", "refrigee"),
		},
		LogSink: LogSinkConfig{
			Container: os.Getenv("LOGSINK_CONTAINER"),
		},
		Tracing: TracingConfig{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: getEnvOrDefault("OTEL_SERVICE_NAME", "refrigee"),
		},
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
