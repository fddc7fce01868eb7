package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Wire   WireConfig
	Feed   FeedConfig
}

type ServerConfig struct {
	Port int
}

// WireConfig bounds the simulated round-trip latency band.
type WireConfig struct {
	MinLatencyMs int
	MaxLatencyMs int
}

type FeedConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Load reads configuration from file and env. Env var overrides use prefix
// FEEDSYNC_ (e.g. FEEDSYNC_SERVER_PORT).
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("wire.min_latency_ms", 40)
	v.SetDefault("wire.max_latency_ms", 300)
	v.SetDefault("feed.default_page_size", 10)
	v.SetDefault("feed.max_page_size", 100)

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("FEEDSYNC_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("feedsync")
	}

	v.SetEnvPrefix("FEEDSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	c := Config{
		Server: ServerConfig{
			Port: v.GetInt("server.port"),
		},
		Wire: WireConfig{
			MinLatencyMs: v.GetInt("wire.min_latency_ms"),
			MaxLatencyMs: v.GetInt("wire.max_latency_ms"),
		},
		Feed: FeedConfig{
			DefaultPageSize: v.GetInt("feed.default_page_size"),
			MaxPageSize:     v.GetInt("feed.max_page_size"),
		},
	}
	if c.Wire.MinLatencyMs < 0 || c.Wire.MaxLatencyMs < c.Wire.MinLatencyMs {
		return c, ErrLatencyBand
	}
	return c, nil
}
