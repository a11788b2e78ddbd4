package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Auth        AuthConfig                `json:"auth"`
	Generation  GenerationConfig          `json:"generation"`
	Providers   map[string]ProviderConfig `json:"providers"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// AuthConfig carries the shared signing secret and token lifetime.
type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

// GenerationConfig selects the completion provider and bounds its output.
type GenerationConfig struct {
	Provider       string `json:"provider"`
	MaxTokens      int    `json:"max_tokens"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

const (
	jwtSecretEnv = "UICRAFT_JWT_SECRET"
	apiKeyEnv    = "UICRAFT_API_KEY"
)

// Load reads configuration from the provided path (defaults to config.json).
// Secrets may be supplied through the environment instead of the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if secret := os.Getenv(jwtSecretEnv); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret must be configured (auth.jwt_secret or %s)", jwtSecretEnv)
	}

	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "openai"
	}
	prov, ok := cfg.Providers[cfg.Generation.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", cfg.Generation.Provider)
	}
	if key := os.Getenv(apiKeyEnv); key != "" {
		prov.APIKey = key
		cfg.Providers[cfg.Generation.Provider] = prov
	}

	return &cfg, nil
}
