package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/thewug/cakeraffle/store"
)

const ENV_PREFIX = "RAFFLE"

var validate = validator.New()

type Session struct {
	Key    string `yaml:"key" validate:"required,min=8"`
	Coder  string `yaml:"coder" validate:"required"`
	Secure bool   `yaml:"secure"`
}

type Sweep struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
	Idle     time.Duration `yaml:"idle" validate:"gt=0"`
}

type Draw struct {
	Tick  time.Duration `yaml:"tick" validate:"gte=0"`
	Steps int           `yaml:"steps" validate:"gte=0,lte=10"`
}

type Config struct {
	Listen   string        `yaml:"listen" validate:"required"`
	LogLevel string        `yaml:"log_level" split_words:"true" validate:"omitempty,oneof=debug info warn error"`
	Session  Session       `yaml:"session"`
	Storage  store.Options `yaml:"storage"`
	Sweep    Sweep         `yaml:"sweep"`
	Draw     Draw          `yaml:"draw"`
}

func Default() Config {
	return Config{
		Listen:   ":3001",
		LogLevel: "info",
		Storage:  store.Options{Driver: store.DRIVER_MEMORY},
		Sweep: Sweep{
			Interval: time.Minute,
			Idle:     30 * time.Minute,
		},
		Draw: Draw{
			Tick:  600 * time.Millisecond,
			Steps: 3,
		},
	}
}

// Load reads the YAML file at path (a missing file is fine), then lets
// RAFFLE_* environment variables, including any from .env, override it.
func Load(path string) (Config, error) {
	cfg := Default()

	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			defer f.Close()
			err = yaml.NewDecoder(f).Decode(&cfg)
			if err != nil && !errors.Is(err, io.EOF) {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}

	err = envconfig.Process(ENV_PREFIX, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}

	err = validate.Struct(cfg)
	if err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: c.Level()}))
}
