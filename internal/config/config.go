package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chat server.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	LLM       LLMConfig       `mapstructure:"llm"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// AdminConfig holds the optional API key protecting mutating endpoints.
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds chat store configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RetrievalConfig holds the external retrieval service credentials. APIKey
// is required: there is no default and startup fails without it.
type RetrievalConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	TopK    int    `mapstructure:"top_k"`
	Rerank  bool   `mapstructure:"rerank"`
}

// LLMConfig holds default provider selection and fallback keys. Requests
// may carry their own keys; these apply when they do not.
type LLMConfig struct {
	DefaultModel string `mapstructure:"default_model"`
	GroqKey      string `mapstructure:"groq_key"`
	GeminiKey    string `mapstructure:"gemini_key"`
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("RAGCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults + environment
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces required settings. Credentials never have defaults;
// a missing retrieval key fails startup instead of failing per request.
func (c *Config) Validate() error {
	if c.Retrieval.APIKey == "" {
		return fmt.Errorf("retrieval.api_key is required (set RAGCHAT_RETRIEVAL_API_KEY)")
	}
	if c.Retrieval.BaseURL == "" {
		return fmt.Errorf("retrieval.base_url must not be empty")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/ragchat.db")

	v.SetDefault("retrieval.base_url", "https://api.ragie.ai")
	// Registered empty so the env override resolves; validation still
	// rejects a missing key.
	v.SetDefault("retrieval.api_key", "")
	v.SetDefault("retrieval.top_k", 8)
	v.SetDefault("retrieval.rerank", true)

	v.SetDefault("llm.default_model", "groq")
	v.SetDefault("llm.groq_key", "")
	v.SetDefault("llm.gemini_key", "")
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
