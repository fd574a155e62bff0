package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path string
		want Format
		ok   bool
	}{
		{"flowd.yaml", FormatYAML, true},
		{"flowd.yml", FormatYAML, true},
		{"flowd.toml", FormatTOML, true},
		{"flowd.json", FormatJSON, true},
		{"flowd.conf", "", false},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			got, ok := DetectFormat(c.path)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
data_dir: /var/lib/flowd
sources:
  in:
    type: stdin
sinks:
  out:
    type: http
    inputs: [in]
    batch:
      max_events: 100
`)
	cfg, err := Parse(doc, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/flowd", cfg.DataDir)
	assert.Equal(t, "stdin", cfg.Sources["in"].Type)
	assert.Equal(t, []string{"in"}, cfg.Sinks["out"].Inputs)
	assert.Equal(t, 100, cfg.Sinks["out"].Batch.MaxEvents)
}

func TestParseTOML(t *testing.T) {
	doc := []byte(`
data_dir = "/var/lib/flowd"

[sources.in]
type = "stdin"

[sinks.out]
type = "http"
inputs = ["in"]
`)
	cfg, err := Parse(doc, FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/flowd", cfg.DataDir)
	assert.Equal(t, "stdin", cfg.Sources["in"].Type)
}

func TestParseJSON(t *testing.T) {
	doc := []byte(`{"data_dir": "/var/lib/flowd", "sources": {"in": {"type": "stdin"}}}`)
	cfg, err := Parse(doc, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/flowd", cfg.DataDir)
}

func TestParseInterpolatesEnvVars(t *testing.T) {
	t.Setenv("FLOWD_HOME", "/opt/flowd")
	doc := []byte(`data_dir: ${FLOWD_HOME}/data`)
	cfg, err := Parse(doc, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "/opt/flowd/data", cfg.DataDir)
}

func TestEnvOverridesDataDir(t *testing.T) {
	t.Setenv("FLOWD_DATA_DIR", "/override")
	doc := []byte(`data_dir: /from-file`)
	cfg, err := Parse(doc, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "/override", cfg.DataDir)
}

func TestLoadInfersFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /d"), 0o644))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "/d", cfg.DataDir)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowd.conf")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /d"), 0o644))

	_, err := Load(path, "")
	require.Error(t, err)
	var unknown *ErrUnknownFormat
	require.ErrorAs(t, err, &unknown)
}
