package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database  DatabaseConfig
	HTTP      HTTPConfig
	Providers ProvidersConfig
	Currency  string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Addr string
}

// ProviderConfig holds one external source's client settings.
type ProviderConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIToken string `mapstructure:"api_token"`
}

// ProvidersConfig holds all source clients plus the shared fetch deadline.
type ProvidersConfig struct {
	FetchTimeoutSeconds int            `mapstructure:"fetch_timeout_seconds"`
	CardAggregator      ProviderConfig `mapstructure:"cardagg"`
	PeerPayment         ProviderConfig `mapstructure:"peerpay"`
	ExpenseSplit        ProviderConfig `mapstructure:"expensesplit"`
}

// FetchTimeout returns the per-account fetch deadline.
func (p ProvidersConfig) FetchTimeout() time.Duration {
	if p.FetchTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.FetchTimeoutSeconds) * time.Second
}

// Load reads configuration from file and env. Env var overrides use prefix
// FINFOLD_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "finfold", "finfold.db"))
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("currency", "USD")
	v.SetDefault("providers.fetch_timeout_seconds", 30)
	v.SetDefault("providers.cardagg.base_url", "https://api.cardagg.example.com")
	v.SetDefault("providers.cardagg.api_token", "")
	v.SetDefault("providers.peerpay.base_url", "https://api.peerpay.example.com")
	v.SetDefault("providers.peerpay.api_token", "")
	v.SetDefault("providers.expensesplit.base_url", "https://api.expensesplit.example.com")
	v.SetDefault("providers.expensesplit.api_token", "")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("FINFOLD_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "finfold"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FINFOLD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
