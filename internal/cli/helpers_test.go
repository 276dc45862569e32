package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	lockedDOI  = "10.5281/zenodo.18012859"
	testCommit = "0123456789abcdef0123456789abcdef01234567"
	registryV2 = "states/3I_ATLAS/state_registry.json"
)

// execute runs a subcommand built from fresh root options and returns
// stdout. Log records are discarded.
func execute(t *testing.T, build func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := build(&RootOptions{Format: format, LogWriter: io.Discard})
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	if args == nil {
		args = []string{} // nil makes cobra fall back to os.Args
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func validState(id string) map[string]any {
	return map[string]any{
		"state_id":              id,
		"timestamp":             "2025-07-01T12:00:00Z",
		"source_doi":            lockedDOI,
		"determinacy":           "underdetermined",
		"assumptions":           []any{"Photometry is calibrated."},
		"required_observations": []any{"Spectrum near perihelion."},
		"provenance": map[string]any{
			"ingest_doi": lockedDOI,
			"record_ids": []any{},
		},
		"incompatibilities": []any{},
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// shippedSchema is the repository's state schema, read relative to this
// package before any test changes directory.
var shippedSchema = filepath.Join("..", "..", "schema", "epistemic_state.schema.json")

// workspace changes into a fresh directory laid out like a repository
// checkout: two valid states, their registry, the shipped state schema and
// a method registry. GIT_COMMIT is pinned so recorded runs are reproducible.
func workspace(t *testing.T) string {
	t.Helper()
	schema, err := os.ReadFile(shippedSchema)
	require.NoError(t, err)

	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("GIT_COMMIT", testCommit)
	t.Setenv("GITHUB_SHA", "")

	writeJSON(t, "states/3I_ATLAS/3i_atlas_001.json", validState("3i_atlas_001"))
	writeJSON(t, "states/3I_ATLAS/3i_atlas_002.json", validState("3i_atlas_002"))
	writeJSON(t, registryV2, map[string]any{
		"registry_version": "1.0.0",
		"system":           "TRIZEL",
		"created":          "2025-07-01T00:00:00Z",
		"state_files":      []any{"3i_atlas_001.json", "3i_atlas_002.json"},
	})
	require.NoError(t, writeFile("schema/epistemic_state.schema.json", string(schema)))
	writeJSON(t, "analysis/methods/method_registry.json", map[string]any{
		"methods": []any{
			map[string]any{
				"method_id":      "P3.M0.CONTRACT_ONLY",
				"method_version": "1.0.0",
				"level":          0,
				"outputs":        []any{"summary.json"},
			},
			map[string]any{
				"method_id":      "P3.M1.RETIRED",
				"method_version": "0.1.0",
				"level":          1,
				"active":         false,
				"outputs":        []any{"summary.json"},
			},
		},
	})
	return dir
}

func decodeJSON(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
