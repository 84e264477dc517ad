// Package config loads the smolcertd configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"xdao.co/smolcert/smolcert"
)

// Config is the daemon configuration.
type Config struct {
	Listen            string `yaml:"listen"`
	StoreDir          string `yaml:"store_dir"`
	RequireSelfSigned bool   `yaml:"require_self_signed"`
	LogLevel          string `yaml:"log_level"`

	Parse ParseConfig `yaml:"parse"`

	// Mirrors are other smolcertd instances every stored certificate is
	// replicated to.
	Mirrors          []string      `yaml:"mirrors"`
	MirrorBestEffort bool          `yaml:"mirror_best_effort"`
	MirrorTimeout    time.Duration `yaml:"mirror_timeout"`
}

type ParseConfig struct {
	MaxSize        int  `yaml:"max_size"`
	MaxExtensions  int  `yaml:"max_extensions"`
	StrictValidity bool `yaml:"strict_validity"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		Listen:            "127.0.0.1:7777",
		StoreDir:          "smolcert-store",
		RequireSelfSigned: true,
		LogLevel:          "info",
		Parse: ParseConfig{
			MaxSize:       smolcert.DefaultMaxSize,
			MaxExtensions: smolcert.DefaultMaxExtensions,
		},
		MirrorTimeout: 5 * time.Second,
	}
}

// Load reads and validates a configuration file. Unknown keys are rejected.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes and validates YAML on top of Default.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen is required")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("config: listen: %w", err)
	}
	if c.StoreDir == "" {
		return errors.New("config: store_dir is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if c.Parse.MaxSize < 0 {
		return errors.New("config: parse.max_size must not be negative")
	}
	if c.Parse.MaxExtensions < 0 {
		return errors.New("config: parse.max_extensions must not be negative")
	}
	for i, m := range c.Mirrors {
		if m == "" {
			return fmt.Errorf("config: mirrors[%d] is empty", i)
		}
	}
	if c.MirrorTimeout < 0 {
		return errors.New("config: mirror_timeout must not be negative")
	}
	return nil
}

// ParseOptions converts the parse section into smolcert options.
func (c Config) ParseOptions() smolcert.ParseOptions {
	return smolcert.ParseOptions{
		MaxSize:        c.Parse.MaxSize,
		MaxExtensions:  c.Parse.MaxExtensions,
		StrictValidity: c.Parse.StrictValidity,
	}
}

// Level returns the logrus level; Validate guarantees it parses.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
