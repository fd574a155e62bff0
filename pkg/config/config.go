// Package config loads a topology.Config from a YAML, TOML, or JSON
// document: the declarative file that names every source, transform,
// and sink in the dataplane.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/flowd/pkg/topology"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the decoder used for a config document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// EnvPrefix is the <ID> in "<ID>_DATA_DIR", the environment override for
// data_dir.
const EnvPrefix = "FLOWD"

// ErrUnknownFormat is returned when a config file's format cannot be
// inferred from its extension and none was given explicitly.
type ErrUnknownFormat struct {
	Path string
}

func (e *ErrUnknownFormat) Error() string {
	return fmt.Sprintf("config: cannot infer format of %q, pass an explicit format", e.Path)
}

// DetectFormat infers a Format from a file extension. Load uses it when
// no explicit format is passed.
func DetectFormat(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// Load reads path, applies ${VAR} environment interpolation, decodes it
// per format (or the format DetectFormat infers from path's extension
// when format is empty), and applies the <ID>_DATA_DIR override.
func Load(path string, format Format) (topology.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return topology.Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	if format == "" {
		detected, ok := DetectFormat(path)
		if !ok {
			return topology.Config{}, &ErrUnknownFormat{Path: path}
		}
		format = detected
	}

	return Parse(raw, format)
}

// Parse decodes an already-read config document of the given format,
// applying ${VAR} interpolation and the data_dir environment override.
// Exported separately from Load so callers that already hold the bytes
// (embedded configs, this package's tests) don't need a
// real file on disk.
func Parse(raw []byte, format Format) (topology.Config, error) {
	expanded := interpolate(raw)

	var cfg topology.Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return topology.Config{}, fmt.Errorf("config: parse yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return topology.Config{}, fmt.Errorf("config: parse toml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(expanded, &cfg); err != nil {
			return topology.Config{}, fmt.Errorf("config: parse json: %w", err)
		}
	default:
		return topology.Config{}, fmt.Errorf("config: unknown format %q", format)
	}

	applyDataDirOverride(&cfg)
	return cfg, nil
}

// interpolate expands ${VAR} references against the process environment.
// os.Expand also expands bare $VAR; that's accepted as a superset of the
// documented ${VAR} syntax rather than worth rejecting.
func interpolate(raw []byte) []byte {
	return []byte(os.Expand(string(raw), os.Getenv))
}

// applyDataDirOverride lets <ID>_DATA_DIR win over a config file's
// data_dir, the documented escape hatch for container/systemd
// deployments that pin data directories via environment rather than
// rewriting the config file.
func applyDataDirOverride(cfg *topology.Config) {
	if v := os.Getenv(EnvPrefix + "_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}
