// Package config loads server configuration from defaults, an optional
// surface.yaml file and SURFACE_* environment variables, in increasing order
// of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/surface/internal/validator"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (SURFACE_SERVER_ADDR, ...).
const EnvPrefix = "SURFACE"

// Store drivers.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	LiveChat   LiveChatConfig   `mapstructure:"livechat"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type StoreConfig struct {
	Driver      string        `mapstructure:"driver" validate:"oneof=none memory redis"`
	TTL         time.Duration `mapstructure:"ttl" validate:"gte=0"`
	PIIPatterns []string      `mapstructure:"pii_patterns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required_if=Lock true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
	Lock     bool   `mapstructure:"lock"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type DispatchConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url" validate:"omitempty,url"`
	Token          string        `mapstructure:"token"`
	DefaultTrigger string        `mapstructure:"default_trigger" validate:"required"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type EncryptionConfig struct {
	Key          string   `mapstructure:"key" validate:"omitempty,base64"`
	FallbackKeys []string `mapstructure:"fallback_keys" validate:"dive,base64"`
}

type LiveChatConfig struct {
	System string `mapstructure:"system" validate:"required"`
}

// SetDefaults registers every key with its default so environment overrides apply.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.ttl", 30*time.Minute)
	v.SetDefault("store.pii_patterns", []string{})

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "surface:snapshot:")
	v.SetDefault("redis.lock", false)

	v.SetDefault("catalog.path", "")

	v.SetDefault("dispatch.webhook_url", "")
	v.SetDefault("dispatch.token", "")
	v.SetDefault("dispatch.default_trigger", "chat")
	v.SetDefault("dispatch.timeout", 5*time.Second)

	v.SetDefault("encryption.key", "")
	v.SetDefault("encryption.fallback_keys", []string{})

	v.SetDefault("livechat.system", "live-chat")
}

// Load reads configuration into v and decodes it.
// An empty path searches surface.yaml in the working directory; a missing file is not an error
// unless path was given explicitly.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("surface")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.Struct(cfg); err != nil {
		return nil, err
	}
	for i, p := range cfg.Store.PIIPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("store.pii_patterns[%d]: %w", i, err)
		}
	}
	return &cfg, nil
}

// Keys decodes the encryption keys. It returns nil when encryption is off.
func (c EncryptionConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if c.Key == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(c.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption.key: %w", err)
	}
	for i, k := range c.FallbackKeys {
		fk, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, fk)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	k, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(k) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(k))
	}
	return k, nil
}
