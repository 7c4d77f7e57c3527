package location

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// TypeDir is a type name of a local directory strategy.
const TypeDir = "dir"

// Config describes a strategy in a configuration file.
// Only the fields relevant to the Type are used.
type Config struct {
	Type string `json:"type" yaml:"type"`

	// Dir is a root directory for the "dir" type. If empty, the location key is used as a directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Atomic enables temp-then-rename writes for the "dir" type.
	Atomic bool `json:"atomic,omitempty" yaml:"atomic,omitempty"`
	// Verify makes the "dir" type compare digests of existing files.
	Verify bool `json:"verify,omitempty" yaml:"verify,omitempty"`

	// Bucket and Prefix select objects for the "gcs" type.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// URL is a base address for the "http" type.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// OpenFunc creates a strategy from its configuration.
type OpenFunc func(ctx context.Context, c Config, log *slog.Logger) (Strategy, error)

var (
	typesMu sync.RWMutex
	typesM  = make(map[string]OpenFunc)
)

func init() {
	RegisterType(TypeDir, openDir)
}

// RegisterType registers a new strategy type.
func RegisterType(typ string, fnc OpenFunc) {
	typesMu.Lock()
	defer typesMu.Unlock()
	typesM[typ] = fnc
}

// Types returns names of all registered strategy types.
func Types() []string {
	typesMu.RLock()
	defer typesMu.RUnlock()
	out := make([]string, 0, len(typesM))
	for typ := range typesM {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Open creates a strategy described by the config.
func Open(ctx context.Context, c Config, log *slog.Logger) (Strategy, error) {
	if log == nil {
		log = slog.Default()
	}
	typ := c.Type
	if typ == "" {
		typ = TypeDir
	}
	typesMu.RLock()
	fnc, ok := typesM[typ]
	typesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported location type: %q", c.Type)
	}
	return fnc(ctx, c, log)
}

func openDir(ctx context.Context, c Config, log *slog.Logger) (Strategy, error) {
	var opts []DirOption
	if c.Atomic {
		opts = append(opts, AtomicWrites())
	}
	var d *Dir
	if c.Dir != "" {
		d = NewDir(c.Dir, opts...)
	} else {
		d = NewKeyDir("", opts...)
	}
	if c.Verify {
		return NewChecked(d, log), nil
	}
	return d, nil
}
