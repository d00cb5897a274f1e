// Package testutil holds helpers shared by package tests.
package testutil

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Update rewrites golden files instead of comparing: go test ./... -update
var Update = flag.Bool("update", false, "update golden files")

// GoldenPath is the location of the golden file name under testdata/.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// Golden compares actual with testdata/<name>.golden, or rewrites the file
// when -update is set.
func Golden(t testing.TB, name string, actual []byte) {
	t.Helper()
	path := GoldenPath(name)

	if *Update {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, actual, 0o644))
		return
	}

	expected, err := os.ReadFile(path)
	require.NoError(t, err, "missing golden file, run with -update")
	assert.Equal(t, string(expected), string(actual), "golden mismatch for %s", name)
}

// GoldenJSON marshals v as indented JSON and compares it like Golden.
func GoldenJSON(t testing.TB, name string, v any) {
	t.Helper()
	b, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	Golden(t, name, b)
}
