package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// EnvRedisAddr overrides the redis address of the serve configuration.
	EnvRedisAddr = "CHATFLOW_REDIS_ADDR"
	// EnvEncryptionKey provides the base64 key sealing node texts at rest.
	EnvEncryptionKey = "CHATFLOW_ENCRYPTION_KEY"
)

// ServeConfig is the configuration of the serve command.
type ServeConfig struct {
	Addr    string        `yaml:"addr" validate:"required"`
	Store   StoreConfig   `yaml:"store"`
	Preview PreviewConfig `yaml:"preview"`
	Log     LogConfig     `yaml:"log"`
}

// StoreConfig selects where flows are saved.
type StoreConfig struct {
	Driver string      `yaml:"driver" validate:"oneof=memory file redis"`
	Path   string      `yaml:"path"`
	Redis  RedisConfig `yaml:"redis"`

	// EncryptionKey is a base64 AES-256 key. When set, node texts are stored encrypted.
	EncryptionKey string `yaml:"encryption_key" validate:"omitempty,base64"`
}

// RedisConfig configures the redis store.
type RedisConfig struct {
	Addr     string        `yaml:"addr" validate:"required_if=Enabled true"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`

	Enabled bool `yaml:"-"`
}

// PreviewConfig tunes the previews served over HTTP.
type PreviewConfig struct {
	Delay    time.Duration `yaml:"delay" validate:"gte=0"`
	MaxSteps int           `yaml:"max_steps" validate:"gte=0"`
}

// LogConfig tunes the server logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

// DefaultServeConfig returns the configuration used when no file is given.
func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		Addr:    ":8080",
		Store:   StoreConfig{Driver: "memory", Path: ".chatflow/flows"},
		Preview: PreviewConfig{Delay: 600 * time.Millisecond, MaxSteps: 1000},
		Log:     LogConfig{Level: "info"},
	}
}

// LoadServeConfig reads path on top of the defaults, applies environment overrides and validates.
// An empty path yields the defaults.
func LoadServeConfig(path string) (ServeConfig, error) {
	cfg := DefaultServeConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		cfg.Store.Driver = "redis"
		cfg.Store.Redis.Addr = addr
	}
	if key := os.Getenv(EnvEncryptionKey); key != "" {
		cfg.Store.EncryptionKey = key
	}
	cfg.Store.Redis.Enabled = cfg.Store.Driver == "redis"

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return cfg, fmt.Errorf("invalid config: %s", verrs[0].Namespace()+" failed "+verrs[0].Tag())
		}
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
