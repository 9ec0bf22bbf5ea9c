package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "PERSONACHAT"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "personachat.db"
	defaultLogLevel      = "info"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAITimeout = 15 * time.Second
	defaultIdentityHdr   = "X-LDAP"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	LogLevel       string
	CORSOrigins    []string
	IdentityHeader string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	OpenAITimeout  time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.cors_origins", []string{"*"})
	configViper.SetDefault("http.identity_header", defaultIdentityHdr)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("openai.model", defaultOpenAIModel)
	configViper.SetDefault("openai.timeout_seconds", int(defaultOpenAITimeout/time.Second))
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		CORSOrigins:    configViper.GetStringSlice("http.cors_origins"),
		IdentityHeader: configViper.GetString("http.identity_header"),
		OpenAIAPIKey:   configViper.GetString("openai.api_key"),
		OpenAIModel:    configViper.GetString("openai.model"),
		OpenAIBaseURL:  configViper.GetString("openai.base_url"),
		OpenAITimeout:  time.Duration(configViper.GetInt("openai.timeout_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.IdentityHeader) == "" {
		return fmt.Errorf("http.identity_header is required")
	}
	if strings.TrimSpace(c.OpenAIModel) == "" {
		return fmt.Errorf("openai.model is required")
	}
	if c.OpenAITimeout <= 0 {
		return fmt.Errorf("openai.timeout_seconds must be positive")
	}
	return nil
}
