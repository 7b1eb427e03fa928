package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suites: [conformance/*.yaml]\nbackend: goja\nverbose: true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"conformance/*.yaml"}, cfg.Suites)
	assert.Equal(t, BackendGoja, cfg.Backend)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "en", cfg.Locale, "unset fields take defaults")
	assert.Empty(t, cfg.Output)

	require.NoError(t, cfg.Override(Config{Filter: "^objects/", Output: "out"}))
	assert.Equal(t, "^objects/", cfg.Filter)
	assert.Equal(t, "out", cfg.Output)
	assert.Equal(t, BackendGoja, cfg.Backend, "empty overrides keep the loaded value")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suites: {\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultConfigPath(t *testing.T) {
	assert.Equal(t, "config.yaml", filepath.Base(DefaultConfigPath()))
	assert.Equal(t, "objconform", filepath.Base(filepath.Dir(DefaultConfigPath())))
}

func TestSuiteFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a/x.yaml", "a/b/y.yaml", "a/b/notes.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("tests: []\n"), 0o644))
	}

	cfg := Config{Suites: []string{
		filepath.Join(dir, "**", "*.yaml"),
		filepath.Join(dir, "a", "x.yaml"),
		filepath.Join(dir, "nothing", "*.yaml"),
	}}
	files, err := cfg.SuiteFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "b", "y.yaml"),
		filepath.Join(dir, "a", "x.yaml"),
	}, files)

	cfg.Suites = []string{filepath.Join(dir, "a", "missing.yaml")}
	_, err = cfg.SuiteFiles()
	assert.Error(t, err)
}
