package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMethodsJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "methods.json")
	yamlPath := filepath.Join(dir, "methods.yaml")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
  "methods": [
    {"method_id": "P3.M0.CONTRACT_ONLY", "method_version": "0.1.0", "level": 0, "outputs": ["manifest.json", "summary.json"]}
  ]
}`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(`methods:
  - method_id: P3.M0.CONTRACT_ONLY
    method_version: 0.1.0
    level: 0
    active: false
    outputs: [manifest.json]
`), 0o644))

	fromJSON, err := LoadMethods(jsonPath)
	require.NoError(t, err)
	m, err := fromJSON.Lookup("P3.M0.CONTRACT_ONLY")
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", m.MethodVersion)
	assert.True(t, m.IsActive())

	fromYAML, err := LoadMethods(yamlPath)
	require.NoError(t, err)
	_, err = fromYAML.Lookup("P3.M0.CONTRACT_ONLY")
	assert.Equal(t, ErrCodeInactiveMethod, ContractCodeOf(err))
}

func TestParseMethodsRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", `{"methods":[{"method_id":"A","colour":"red"}]}`, "unknown field"},
		{"missing id", `{"methods":[{"method_version":"1"}]}`, "missing method_id"},
		{"duplicate id", `{"methods":[{"method_id":"A"},{"method_id":"A"}]}`, "duplicate method_id A"},
		{"not json", `methods: []`, "invalid method registry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMethods([]byte(tt.doc), false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMethodsMissingFile(t *testing.T) {
	_, err := LoadMethods(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.False(t, IsContractError(err))
}
