package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	TransportWebSocket = "ws"
	TransportRedis     = "redis"
	TransportMemory    = "memory"

	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the runtime settings of the client and the relay server.
type Config struct {
	Namespace        string        `mapstructure:"namespace"`
	Transport        string        `mapstructure:"transport"`
	RelayURL         string        `mapstructure:"relay_url"`
	RedisAddr        string        `mapstructure:"redis_addr"`
	RelayRedis       bool          `mapstructure:"relay_redis"`
	Store            string        `mapstructure:"store"`
	Home             string        `mapstructure:"home"`
	Passphrase       string        `mapstructure:"passphrase"`
	QRTTL            time.Duration `mapstructure:"qr_ttl"`
	FingerprintBytes int           `mapstructure:"fingerprint_bytes"`
	Listen           string        `mapstructure:"listen"`
	LogLevel         string        `mapstructure:"log_level"`
}

// flagKeys maps viper keys to the command line flag that overrides them.
var flagKeys = map[string]string{
	"namespace":         "namespace",
	"transport":         "transport",
	"relay_url":         "relay-url",
	"redis_addr":        "redis-addr",
	"relay_redis":       "redis",
	"store":             "store",
	"home":              "home",
	"passphrase":        "passphrase",
	"qr_ttl":            "qr-ttl",
	"fingerprint_bytes": "fingerprint-bytes",
	"listen":            "listen",
	"log_level":         "log-level",
}

// Load reads the configuration from .env files, NULLCHAT_* environment
// variables, an optional nullchat.yaml and the given flags, in increasing
// order of precedence. Missing .env and config files are not an error.
func Load(flags *pflag.FlagSet, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("nullchat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.nullchat")

	v.SetEnvPrefix("NULLCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.Home = filepath.Join(dir, ".nullchat")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings and numeric ranges.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportWebSocket, TransportRedis, TransportMemory:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}
	switch c.Store {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.Namespace == "" || strings.ContainsAny(c.Namespace, "+#") {
		return fmt.Errorf("%w: namespace %q", ErrInvalidConfig, c.Namespace)
	}
	if c.QRTTL <= 0 {
		return fmt.Errorf("%w: qr_ttl must be positive", ErrInvalidConfig)
	}
	if c.FingerprintBytes < 1 || c.FingerprintBytes > 64 {
		return fmt.Errorf("%w: fingerprint_bytes must be within 1..64", ErrInvalidConfig)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("namespace", Namespace)
	v.SetDefault("transport", TransportWebSocket)
	v.SetDefault("relay_url", RelayURL)
	v.SetDefault("redis_addr", RedisAddress)
	v.SetDefault("relay_redis", false)
	v.SetDefault("store", StoreFile)
	v.SetDefault("home", "")
	v.SetDefault("passphrase", "")
	v.SetDefault("qr_ttl", QRTTL.String())
	v.SetDefault("fingerprint_bytes", FingerprintBytes)
	v.SetDefault("listen", ListenAddress)
	v.SetDefault("log_level", "info")
}
