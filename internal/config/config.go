package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Quotes   Quotes   `mapstructure:"quotes"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Watcher  Watcher  `mapstructure:"watcher"`
	Alerts   Alerts   `mapstructure:"alerts"`
}

// Quotes holds the configuration for the market quote client.
type Quotes struct {
	Testnet        bool    `mapstructure:"testnet"`
	QuoteAsset     string  `mapstructure:"quote_asset"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Watcher holds the configuration for the price watcher loop.
type Watcher struct {
	TickInterval int `mapstructure:"tick_interval"`
}

// Alerts holds the default alert policy the watcher binds to steps.
type Alerts struct {
	BeforeTargetMode  string  `mapstructure:"before_target_mode"`
	BeforeTargetValue float64 `mapstructure:"before_target_value"`
	OnReach           bool    `mapstructure:"on_reach"`
	ChannelHints      string  `mapstructure:"channel_hints"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("quotes.quote_asset", "USDT")
	viper.SetDefault("quotes.rate_limit", 20)      // requests per second
	viper.SetDefault("quotes.rate_limit_burst", 5) // burst size
	viper.SetDefault("watcher.tick_interval", 60)  // seconds between quote polls
	viper.SetDefault("alerts.on_reach", true)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("database.dsn", "coinladder.db")
	viper.SetDefault("server.port", 8080)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
