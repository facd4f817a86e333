// config/config.go
package config

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/ludopad/ludopad/protocol"
)

// Config holds everything a view needs to reach the device and its storage.
type Config struct {
	// DeviceHost is where the board device answers; defaults to the access
	// point address the device announces.
	DeviceHost string `env:"LUDOPAD_DEVICE_HOST, default=192.168.4.1"`

	// DeviceSecure selects wss over ws.
	DeviceSecure bool `env:"LUDOPAD_DEVICE_SECURE, default=false"`

	// StorageBackend selects the durable store: memory, redis, or postgres.
	StorageBackend string `env:"LUDOPAD_STORAGE_BACKEND, default=memory"`

	RedisURL    string `env:"LUDOPAD_REDIS_URL, default=redis://localhost:6379"`
	PostgresDSN string `env:"LUDOPAD_POSTGRES_DSN"`
}

// Load reads configuration from the environment, with an optional .env file.
func Load(ctx context.Context) (Config, error) {
	// A missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DeviceURL derives the websocket endpoint for the configured device.
func (c Config) DeviceURL() string {
	return protocol.EndpointURL(c.DeviceHost, c.DeviceSecure)
}
