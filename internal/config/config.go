// Package config reads the server configuration from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsingConfig wraps every env parsing failure.
var ErrParsingConfig = errors.New("failed to parse config")

// Config is the process level configuration of lattice serve and lattice mcp.
type Config struct {
	Addr       string `env:"ADDR" envDefault:":8080"`
	Dir        string `env:"DIR" envDefault:"."`
	AdminToken string `env:"ADMIN_TOKEN"`

	RedisURL string `env:"REDIS_URL"`
	PGURL    string `env:"PG_URL"`

	EpsilonLimit int  `env:"EPSILON_LIMIT" envDefault:"32"`
	StrictKinds  bool `env:"STRICT_KINDS"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// EncryptionKey is a base64 AES-256 key sealing stored vectors.
	EncryptionKey  string   `env:"ENCRYPTION_KEY"`
	FallbackKeys   []string `env:"ENCRYPTION_FALLBACK_KEYS" envSeparator:","`
	AllowPlainText bool     `env:"ENCRYPTION_ALLOW_PLAIN"`
}

// Load reads .env style files (missing files are skipped, defaulting to ".env") and
// then parses LATTICE_ prefixed variables. Variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "LATTICE_"})
	if err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if cfg.EpsilonLimit <= 0 {
		return Config{}, fmt.Errorf("%w: LATTICE_EPSILON_LIMIT must be positive", ErrParsingConfig)
	}
	return cfg, nil
}

// Logger builds the logger described by LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	level := logging.ParseLevel(c.LogLevel)
	if c.LogFormat == "json" {
		return logging.NewJSON(os.Stderr, level)
	}
	return logging.New(level)
}

// Keys decodes the encryption keys. It returns nil keys when encryption is off.
func (c Config) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = base64.StdEncoding.DecodeString(c.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("invalid LATTICE_ENCRYPTION_KEY: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid fallback key %d: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}
