// Package config holds the compile options and the funforth.yaml loader.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the project configuration file the loader looks for
const ConfigFileName = "funforth.yaml"

// Options controls a single compilation
type Options struct {
	// Optimize enables the constant folder. On unless switched off.
	Optimize bool `yaml:"optimize"`

	// StrictDivZero turns statically detected division and modulo by zero
	// into compile errors instead of leaving them for the runtime
	StrictDivZero bool `yaml:"strict_div_zero"`

	// Trace enables per-rewrite and per-stage diagnostic messages
	Trace bool `yaml:"trace"`

	// TraceWriter is where trace output goes; defaults to stderr
	TraceWriter io.Writer `yaml:"-"`
}

// Default returns the options used when no configuration is given
func Default() Options {
	return Options{Optimize: true, TraceWriter: os.Stderr}
}

// Load reads and parses a funforth.yaml file
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses funforth.yaml content from bytes. The path argument is used
// only for error messages.
func Parse(data []byte, path string) (Options, error) {
	opts := Default()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return opts, nil
}

// Find searches for funforth.yaml starting from dir and walking up parent
// directories. Returns an empty path and nil error when nothing is found.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
