package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objmodel/pkg/harness"
)

var suitesGlob = filepath.Join("..", "..", "testdata", "suites", "*.yaml")

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("locale: en\n"), 0o644))

	var out, errOut bytes.Buffer
	cmd := newRootCmd(context.Background(), "test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--config", config))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunAndCompare(t *testing.T) {
	modelDir := filepath.Join(t.TempDir(), "model")
	out, err := execute(t, "run", "--output", modelDir, suitesGlob)
	require.NoError(t, err)
	assert.Contains(t, out, "Results (model):")
	assert.Contains(t, out, "Conformance: 100%")
	assert.FileExists(t, filepath.Join(modelDir, harness.LatestFileName))
	assert.FileExists(t, filepath.Join(modelDir, harness.ResultsFileName))

	gojaDir := filepath.Join(t.TempDir(), "goja")
	out, err = execute(t, "run", "--backend", "goja", "--output", gojaDir, suitesGlob)
	require.NoError(t, err)
	assert.Contains(t, out, "Results (goja):")

	out, err = execute(t, "compare", modelDir, filepath.Join(gojaDir, harness.LatestFileName))
	require.NoError(t, err)
	assert.Contains(t, out, "Passed")
}

func TestRunFailsOnMismatch(t *testing.T) {
	suite := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(suite, []byte(`objects:
  o: {}
tests:
  - name: wrong
    steps:
      - {op: isExtensible, object: o, expect: false}
`), 0o644))

	out, err := execute(t, "run", suite)
	assert.Error(t, err)
	assert.Contains(t, out, "Assertion Error at "+suite+":6:9: isExtensible o (expected false, got true)")
}

func TestList(t *testing.T) {
	out, err := execute(t, "list", "--filter", `^objects/`, suitesGlob)
	require.NoError(t, err)
	assert.Contains(t, out, "objects/own keys keep insertion order\n")
	assert.Contains(t, out, "(skipped: ")
	assert.NotContains(t, out, "prototype/")
}

func TestUnknownBackend(t *testing.T) {
	_, err := execute(t, "run", "--backend", "rhino", suitesGlob)
	assert.Error(t, err)
}
