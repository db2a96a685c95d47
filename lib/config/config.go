// Package config loads meld application settings from YAML.
//
// A minimal file:
//
//	server:
//	  addr: ":8080"
//	templates:
//	  dir: components
//	snapshot:
//	  secret: change-me
//
// Missing keys keep their defaults. MELD_SECRET overrides snapshot.secret.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SecretEnv is the environment variable that overrides snapshot.secret.
const SecretEnv = "MELD_SECRET"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Templates TemplatesConfig `yaml:"templates"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	MessagePath     string `yaml:"message_path"`
	SocketPath      string `yaml:"socket_path"`
	MaxMessageBytes int64  `yaml:"max_message_bytes"`
}

type TemplatesConfig struct {
	Dir string `yaml:"dir"`
	Ext string `yaml:"ext"`
}

// SnapshotConfig controls snapshot signing. An empty secret disables it.
type SnapshotConfig struct {
	Secret string `yaml:"secret"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MessagePath:     "/meld/message",
			SocketPath:      "/meld/socket",
			MaxMessageBytes: 1 << 20,
		},
		Templates: TemplatesConfig{
			Dir: "components",
			Ext: ".html",
		},
		Metrics: MetricsConfig{
			Path:      "/metrics",
			Namespace: "meld",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, err
		}
	}
	ApplyEnv(&cfg, os.Getenv)
	return cfg, cfg.Validate()
}

// Parse decodes YAML into cfg. Keys not present in data are left alone;
// unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv applies environment overrides using getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if secret := strings.TrimSpace(getenv(SecretEnv)); secret != "" {
		cfg.Snapshot.Secret = secret
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	for key, p := range map[string]string{
		"server.message_path": c.Server.MessagePath,
		"server.socket_path":  c.Server.SocketPath,
	} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("%s must start with /", key))
		}
	}
	if c.Server.MessagePath == c.Server.SocketPath {
		errs = append(errs, errors.New("server.message_path and server.socket_path must differ"))
	}
	if c.Server.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("server.max_message_bytes must be positive"))
	}
	if c.Templates.Dir == "" {
		errs = append(errs, errors.New("templates.dir is required"))
	}
	if c.Templates.Ext != "" && !strings.HasPrefix(c.Templates.Ext, ".") {
		errs = append(errs, errors.New("templates.ext must start with ."))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, errors.New("metrics.path must start with /"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Logger builds a slog logger writing to w at the configured level and
// format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
