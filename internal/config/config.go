package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App        AppConfig        `toml:"app"`
	LlamaStack LlamaStackConfig `toml:"llama_stack"`
	Database   DatabaseConfig   `toml:"database"`
	Storage    StorageConfig    `toml:"storage"`
	Smarty     SmartyConfig     `toml:"smarty"`
	Redis      RedisConfig      `toml:"redis"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type LlamaStackConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	// ProviderData is serialized into the X-LlamaStack-Provider-Data header.
	// Empty values are pruned so the header is omitted when nothing is set.
	ProviderData map[string]string `toml:"provider_data"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type StorageConfig struct {
	PublicDir string `toml:"public_dir"`
	DistDir   string `toml:"dist_dir"`
}

type SmartyConfig struct {
	AuthID    string `toml:"auth_id"`
	AuthToken string `toml:"auth_token"`
}

type RedisConfig struct {
	Addr                 string `toml:"addr"`
	Password             string `toml:"password"`
	DB                   int    `toml:"db"`
	SuggestionTTLSeconds int    `toml:"suggestion_ttl_seconds"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	pruneEmptyProviderData(cfg)
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// RedisEnabled reports whether the optional suggestion cache is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "permit-agent",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    5174,
			GinMode: "release",
		},
		LlamaStack: LlamaStackConfig{
			BaseURL:      "http://localhost:8321",
			ProviderData: map[string]string{},
		},
		Database: DatabaseConfig{
			Path: "data/app.db",
		},
		Storage: StorageConfig{
			PublicDir: "public",
			DistDir:   "dist",
		},
		Redis: RedisConfig{
			SuggestionTTLSeconds: 300,
		},
	}
}

var providerDataEnvKeys = map[string]string{
	"fireworks_api_key":     "FIREWORKS_API_KEY",
	"together_api_key":      "TOGETHER_API_KEY",
	"sambanova_api_key":     "SAMBANOVA_API_KEY",
	"openai_api_key":        "OPENAI_API_KEY",
	"tavily_search_api_key": "TAVILY_SEARCH_API_KEY",
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.LlamaStack.BaseURL = getEnv("LLAMA_STACK_ENDPOINT", cfg.LlamaStack.BaseURL)
	cfg.LlamaStack.APIKey = getEnv("LLAMA_STACK_API_KEY", cfg.LlamaStack.APIKey)
	if cfg.LlamaStack.ProviderData == nil {
		cfg.LlamaStack.ProviderData = map[string]string{}
	}
	for key, envName := range providerDataEnvKeys {
		cfg.LlamaStack.ProviderData[key] = getEnv(envName, cfg.LlamaStack.ProviderData[key])
	}

	cfg.Database.Path = getEnv("DATABASE_PATH", cfg.Database.Path)

	cfg.Storage.PublicDir = getEnv("PUBLIC_DIR", cfg.Storage.PublicDir)
	cfg.Storage.DistDir = getEnv("DIST_DIR", cfg.Storage.DistDir)

	cfg.Smarty.AuthID = getEnv("SMARTY_AUTH_ID", cfg.Smarty.AuthID)
	cfg.Smarty.AuthToken = getEnv("SMARTY_AUTH_TOKEN", cfg.Smarty.AuthToken)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.SuggestionTTLSeconds = getEnvAsInt("REDIS_SUGGESTION_TTL_SECONDS", cfg.Redis.SuggestionTTLSeconds)
}

func pruneEmptyProviderData(cfg *Config) {
	for key, value := range cfg.LlamaStack.ProviderData {
		if value == "" {
			delete(cfg.LlamaStack.ProviderData, key)
		}
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
