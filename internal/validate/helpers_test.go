package validate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trizel-project/epistemic-engine/internal/rules"
)

const lockedDOI = "10.5281/zenodo.18012859"

func profile(t *testing.T, name string) rules.Profile {
	t.Helper()
	p, err := rules.MustBuiltin().Get(name)
	require.NoError(t, err)
	return p
}

// validState returns a fresh minimal record that passes the v2 profile.
func validState() map[string]any {
	return map[string]any{
		"state_id":              "3i_atlas_001",
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
