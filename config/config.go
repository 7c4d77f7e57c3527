// Package config reads and writes location configuration files.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dennwc/fileref/location"
)

const (
	DefaultConfigExt = ".json"
	DefaultConfig    = "config" + DefaultConfigExt
)

// Config stores the locations known to the process.
type Config struct {
	// DefaultRoot is a directory for blobs with an empty location key.
	// If empty, location.DefaultRoot is used.
	DefaultRoot string `json:"default_root,omitempty" yaml:"default_root,omitempty"`
	// Atomic enables temp-then-rename writes for the default strategy.
	Atomic bool `json:"atomic,omitempty" yaml:"atomic,omitempty"`
	// Locations maps location keys to strategies.
	Locations map[string]location.Config `json:"locations,omitempty" yaml:"locations,omitempty"`
}

// Registry creates a registry with all locations from the config.
func (c *Config) Registry(ctx context.Context, log *slog.Logger) (*location.Registry, error) {
	var opts []location.DirOption
	if c.Atomic {
		opts = append(opts, location.AtomicWrites())
	}
	reg := location.NewRegistry(location.NewKeyDir(c.DefaultRoot, opts...))
	for key, lc := range c.Locations {
		s, err := location.Open(ctx, lc, log)
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", key, err)
		}
		reg.Register(key, s)
	}
	return reg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// fixPath adds a name of default config if the specified path ends with a separator.
// It will also guess a file extension if it was not specified.
func fixPath(path string) string {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		path += DefaultConfig
	} else if filepath.Ext(path) == "" {
		path += DefaultConfigExt
	}
	return path
}

// ReadConfig reads a config file from a given path.
// Files with ".yaml" or ".yml" extensions are decoded as YAML, others as JSON.
func ReadConfig(path string) (*Config, error) {
	path = fixPath(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, isYAML(path))
}

// Decode reads a config from r.
func Decode(r io.Reader, asYAML bool) (*Config, error) {
	var conf Config
	if asYAML {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&conf); err != nil && err != io.EOF {
			return nil, err
		}
		return &conf, nil
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// WriteConfig writes a config file to a given path.
// The format is selected by the file extension, as in ReadConfig.
func WriteConfig(path string, conf *Config) error {
	path = fixPath(path)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err = enc.Encode(conf); err != nil {
			return err
		}
		if err = enc.Close(); err != nil {
			return err
		}
	} else {
		enc := json.NewEncoder(f)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "\t")
		if err = enc.Encode(conf); err != nil {
			return err
		}
	}
	return f.Close()
}
