package rpc

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/polkaclient/polkaclient/pkg/log"
)

const configDirEnv = "POLKA_CONFIG_DIR"

// Config holds the client settings. Values come from an optional
// config.yaml, then from the environment.
type Config struct {
	CallTimeout      time.Duration `yaml:"call_timeout" env:"POLKA_CALL_TIMEOUT" env-default:"30s" validate:"gte=0"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"POLKA_HANDSHAKE_TIMEOUT" env-default:"10s" validate:"gte=0"`
	PingInterval     time.Duration `yaml:"ping_interval" env:"POLKA_PING_INTERVAL" env-default:"20s" validate:"gte=0"`
	WriteTimeout     time.Duration `yaml:"write_timeout" env:"POLKA_WRITE_TIMEOUT" env-default:"5s" validate:"gte=0"`
	ReadLimit        int64         `yaml:"read_limit" env:"POLKA_READ_LIMIT" env-default:"16777216" validate:"gte=0"`

	// SubscriptionQueueSize bounds the undelivered notifications kept per
	// subscription.
	SubscriptionQueueSize int `yaml:"subscription_queue_size" env:"POLKA_SUBSCRIPTION_QUEUE_SIZE" env-default:"64" validate:"gt=0"`

	// RequestsPerSecond throttles outgoing calls; 0 disables the limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"POLKA_REQUESTS_PER_SECOND" env-default:"0" validate:"gte=0"`
	RequestBurst      int     `yaml:"request_burst" env:"POLKA_REQUEST_BURST" env-default:"1" validate:"gte=1"`

	Log log.Config `yaml:"log"`
}

// DefaultConfig returns the defaults without reading the environment.
func DefaultConfig() Config {
	return Config{
		CallTimeout:           30 * time.Second,
		HandshakeTimeout:      10 * time.Second,
		PingInterval:          20 * time.Second,
		WriteTimeout:          5 * time.Second,
		ReadLimit:             16 << 20,
		SubscriptionQueueSize: 64,
		RequestBurst:          1,
		Log: log.Config{
			Format: "console",
			Level:  log.LevelInfo,
			Output: "stderr",
		},
	}
}

// LoadConfig reads <dir>/.env into the environment, then <dir>/config.yaml
// if present, then the POLKA_* variables. dir defaults to $POLKA_CONFIG_DIR
// or the working directory.
func LoadConfig(lg log.Logger, dir string) (Config, error) {
	if lg == nil {
		lg = log.NewNoopLogger()
	}
	lg = lg.WithName("config")

	if dir == "" {
		dir = os.Getenv(configDirEnv)
	}
	if dir == "" {
		dir = "."
	}

	envPath := filepath.Join(dir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		lg.Debug(".env file not loaded", "path", envPath, "error", err)
	}

	var cfg Config
	yamlPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		lg.Info("loading config file", "path", yamlPath)
		if err := cleanenv.ReadConfig(yamlPath, &cfg); err != nil {
			return Config{}, err
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and the log settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Log.Level != "" && !c.Log.Level.Valid() {
		return errors.New("invalid log level " + string(c.Log.Level))
	}
	return nil
}

func (c Config) websocket() WebsocketConfig {
	return WebsocketConfig{
		HandshakeTimeout: c.HandshakeTimeout,
		PingInterval:     c.PingInterval,
		WriteTimeout:     c.WriteTimeout,
		ReadLimit:        c.ReadLimit,
	}
}
