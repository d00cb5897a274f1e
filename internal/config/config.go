// Package config loads job files and environment settings.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/contactkeval/option-lattice/internal/logger"
)

// Defaults shared by the CLI, the batch engine and the server.
const (
	DefaultModel     = "binomial"
	DefaultSteps     = 200
	DefaultVerbosity = 1
	DefaultOutputDir = "reports"
	DefaultEnvFile   = ".env"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// LoadFile decodes a YAML (.yaml, .yml) or JSON (.json) file into out.
// Unknown fields are rejected so typos in job files surface early.
func LoadFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("invalid yaml config %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("invalid json config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	logger.Debugf("loaded config %s", path)
	return nil
}

// LoadEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debugf("env file %s not found, using process environment", path)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s file: %w", path, err)
	}
	logger.Debugf("loaded env file %s", path)
	return nil
}

// APIKey returns the market data key, preferring MASSIVE_API_KEY over the
// older POLYGON_API_KEY.
func APIKey() string {
	if key := os.Getenv("MASSIVE_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("POLYGON_API_KEY")
}
