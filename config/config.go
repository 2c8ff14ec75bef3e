// Package config loads the YAML configuration shared by the sxl binaries.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/njchilds90/spacetime/library"
	"github.com/njchilds90/spacetime/telemetry"
	"github.com/njchilds90/spacetime/tensor"
)

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

// Config is the root document.
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Units     library.Units    `yaml:"units"`
	Names     tensor.Names     `yaml:"names"`
	Library   LibraryConfig    `yaml:"library"`
	Server    ServerConfig     `yaml:"server"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type LibraryConfig struct {
	// Files are extra catalog documents loaded after the built-in catalog.
	Files []string `yaml:"files,omitempty" validate:"dive,required"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
	// MaxManifolds bounds the sessions one server keeps.
	MaxManifolds int `yaml:"max_manifolds" validate:"gte=1"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info", Format: "text"},
		Units:     library.Natural(),
		Names:     tensor.DefaultNames(),
		Server:    ServerConfig{Addr: ":8080", MaxManifolds: 64},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load reads path over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags and that every role has its own name.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Names.Validate(); err != nil {
		return fmt.Errorf("%w: names: %w", ErrInvalid, err)
	}
	return nil
}

// WriteDefault writes the default configuration to path, creating its
// directory.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Settings returns the manifold settings for the configured names and units.
func (c Config) Settings() tensor.Settings {
	return c.Units.Settings(c.Names)
}

// Catalog returns the built-in catalog extended by Library.Files.
func (c Config) Catalog() (*library.Catalog, error) {
	cat := library.Builtin()
	for _, f := range c.Library.Files {
		if err := cat.Load(f); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// Logger builds a slog logger writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
