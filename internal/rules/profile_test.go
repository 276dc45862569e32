package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinProfiles(t *testing.T) {
	set, err := Builtin()
	require.NoError(t, err)

	assert.Equal(t, "v2", set.Default)
	assert.Equal(t, []string{"v1", "v2"}, set.Names())

	v2, err := set.Get("")
	require.NoError(t, err)
	assert.Equal(t, "v2", v2.Name)
	assert.Equal(t, "determinacy", v2.StatusField)
	assert.Equal(t, []string{"confirmed", "plausible", "underdetermined", "unfalsified", "falsified"}, v2.StatusValues)
	assert.Equal(t, "10.5281/zenodo.18012859", v2.IngestDOI)
	assert.Equal(t, "provenance", v2.ProvenanceField)
	assert.Equal(t, 1000, v2.DescriptionMax)
	assert.Contains(t, v2.ForbiddenFields, "epistemic_status")
	assert.Equal(t, []string{"registry_version", "system", "created", "state_files"}, v2.Registry.FilesRequired)

	v1, err := set.Get("v1")
	require.NoError(t, err)
	assert.Equal(t, "epistemic_status", v1.StatusField)
	assert.Equal(t, []string{"competing", "consensus", "rejected", "preliminary"}, v1.StatusValues)
	assert.Empty(t, v1.ProvenanceField)
	assert.Equal(t, []string{"metadata"}, v1.ObjectFields)
	assert.Equal(t, []string{"registry_version", "last_updated", "states"}, v1.Registry.EntriesRequired)
}

func TestGetUnknownProfile(t *testing.T) {
	set := MustBuiltin()

	_, err := set.Get("v9")
	require.Error(t, err)
	var pe *ProfileError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "v9", pe.Name)
	assert.Contains(t, err.Error(), "unknown profile")
}

func TestLoadYAMLAddsProfileWithDefaults(t *testing.T) {
	set := MustBuiltin()

	doc := []byte(`
default_profile: minimal
profiles:
  minimal:
    description: Identity and timestamp only.
    required: [state_id, timestamp]
    status_field: status
    status_values: [open, closed]
`)
	require.NoError(t, set.LoadYAML(doc))

	assert.Equal(t, "minimal", set.Default)
	p, err := set.Get("")
	require.NoError(t, err)
	assert.Equal(t, "minimal", p.Name)
	assert.Equal(t, []string{"state_id", "timestamp"}, p.Required)
	assert.Equal(t, 1000, p.DescriptionMax)
	assert.Empty(t, p.NonEmptyLists)
	assert.Equal(t, []string{"registry_version", "last_updated", "states"}, p.Registry.EntriesRequired)
}

func TestLoadYAMLRejectsMalformedProfile(t *testing.T) {
	cases := map[string]string{
		"empty required list": `
profiles:
  broken:
    required: []
    status_field: status
    status_values: [a]
`,
		"unknown field": `
profiles:
  broken:
    required: [state_id]
    status_field: status
    status_values: [a]
    ranking: strict
`,
		"negative description max": `
profiles:
  broken:
    required: [state_id]
    status_field: status
    status_values: [a]
    description_max: -1
`,
		"missing vocabulary": `
profiles:
  broken:
    required: [state_id]
    status_field: status
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			set := MustBuiltin()
			err := set.LoadYAML([]byte(doc))
			require.Error(t, err)
			var pe *ProfileError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "broken", pe.Name)

			_, getErr := set.Get("broken")
			assert.Error(t, getErr, "rejected profile must not be registered")
		})
	}
}

func TestLoadYAMLUnknownDefault(t *testing.T) {
	set := MustBuiltin()
	err := set.LoadYAML([]byte("default_profile: nope\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile")
	assert.Equal(t, "v2", set.Default)
}

func TestLoadYAMLUnknownDefaultLeavesSetUnchanged(t *testing.T) {
	set := MustBuiltin()
	before := set.Names()

	err := set.LoadYAML([]byte(`
default_profile: nope
profiles:
  minimal:
    description: Identity and timestamp only.
    required: [state_id, timestamp]
    status_field: status
    status_values: [open, closed]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile")
	assert.Equal(t, before, set.Names())
	_, getErr := set.Get("minimal")
	assert.Error(t, getErr)
	assert.Equal(t, "v2", set.Default)
}

func TestHas(t *testing.T) {
	assert.True(t, Has([]string{"a", "b"}, "b"))
	assert.False(t, Has(nil, "a"))
}
