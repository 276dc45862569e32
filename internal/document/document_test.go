package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "string", TypeName("x"))
	assert.Equal(t, "boolean", TypeName(true))
	assert.Equal(t, "number", TypeName(float64(1)))
	assert.Equal(t, "number", TypeName(3))
	assert.Equal(t, "array", TypeName([]any{}))
	assert.Equal(t, "object", TypeName(map[string]any{}))
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "doc.json")
	yamlPath := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"states": ["a", "b"], "active": true}`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte("states:\n  - a\n  - b\nactive: true\n"), 0o644))

	fromJSON, err := LoadObject(jsonPath)
	require.NoError(t, err)
	fromYAML, err := LoadObject(yamlPath)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestLoadRejectsTrailingData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1} {"b": 2}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected data")
}

func TestLoadObjectRejectsNonObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1, 2]`), 0o644))

	_, err := LoadObject(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an object, got array")
}
