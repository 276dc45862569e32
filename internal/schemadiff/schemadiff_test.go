package schemadiff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := LoadSchema(filepath.Join("testdata", "state.schema.json"))
	require.NoError(t, err)
	return s
}

func TestCompileRejectsInvalidSchema(t *testing.T) {
	_, err := Compile([]byte(`{"type": 12}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schema")

	_, err = Compile([]byte(`{"type": "object"`))
	require.Error(t, err)
}

func TestIssuesValidInstance(t *testing.T) {
	s := loadTestSchema(t)

	issues, err := s.Issues(map[string]any{
		"state_id":    "3i_atlas_001",
		"source_doi":  "10.5281/zenodo.18012859",
		"assumptions": []any{"a"},
	})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestIssuesCollectsAllSorted(t *testing.T) {
	s := loadTestSchema(t)

	issues, err := s.Issues(map[string]any{
		"state_id":    "Bad-ID",
		"source_doi":  "not-a-doi",
		"assumptions": []any{},
	})
	require.NoError(t, err)
	require.Len(t, issues, 3)

	paths := []string{issues[0].Path, issues[1].Path, issues[2].Path}
	assert.Equal(t, []string{"/assumptions", "/source_doi", "/state_id"}, paths)
	assert.Equal(t, "format", issues[1].Keyword)
	assert.Contains(t, issues[1].Message, "doi")
	assert.Equal(t, "format", issues[2].Keyword)
	assert.Contains(t, issues[2].Message, "state-id")
}

func TestIssuesRootPath(t *testing.T) {
	s := loadTestSchema(t)

	issues, err := s.Issues(map[string]any{
		"state_id":   "3i_atlas_001",
		"source_doi": "10.5281/zenodo.18012859",
	})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "/", issues[0].Path)
	assert.Equal(t, "required", issues[0].Keyword)
	assert.Contains(t, issues[0].Message, "assumptions")

	issues, err = s.Issues([]any{1, 2})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "/", issues[0].Path)
}

func TestIssuesNestedPointer(t *testing.T) {
	s := loadTestSchema(t)

	issues, err := s.Issues(map[string]any{
		"state_id":    "3i_atlas_001",
		"source_doi":  "10.5281/zenodo.18012859",
		"assumptions": []any{"ok", ""},
	})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "/assumptions/1", issues[0].Path)
	assert.Equal(t, "minLength", issues[0].Keyword)
}

func TestFormatsIgnoreNonStrings(t *testing.T) {
	assert.NoError(t, stateIDFormat(12))
	assert.NoError(t, doiFormat(nil))
	assert.NoError(t, stateIDFormat("3i_atlas_001"))
	assert.Error(t, stateIDFormat("3I_ATLAS_001"))
	assert.NoError(t, doiFormat("10.1000/xyz"))
	assert.Error(t, doiFormat("doi:10.1000/xyz"))
}

func TestModernDialectKeywords(t *testing.T) {
	s, err := LoadSchema(filepath.Join("testdata", "modern.schema.json"))
	require.NoError(t, err)

	issues, err := s.Issues(map[string]any{
		"a":    "x",
		"zzz":  true,
		"pair": []any{1, "x"},
	})
	require.NoError(t, err)

	var got []string
	for _, is := range issues {
		got = append(got, is.Path+" "+is.Keyword)
	}
	assert.Equal(t, []string{
		"/ dependentRequired",
		"/pair/0 type",
		"/pair/1 type",
		"/zzz unevaluatedProperties",
	}, got)

	issues, err = s.Issues(map[string]any{"a": "x", "b": "y", "pair": []any{"x", 1}})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestDefaultDialectIs2020(t *testing.T) {
	s, err := Compile([]byte(`{"type": "object", "dependentRequired": {"a": ["b"]}}`))
	require.NoError(t, err)

	issues, err := s.Issues(map[string]any{"a": 1})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "dependentRequired", issues[0].Keyword)
	assert.Contains(t, issues[0].Message, "b")
}

func TestUnknownDialectFailsOffline(t *testing.T) {
	_, err := Compile([]byte(`{"$schema": "https://example.invalid/meta", "type": "object"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schema")
}

func TestAdditionalPropertiesListedInOrder(t *testing.T) {
	s, err := Compile([]byte(`{"type": "object", "additionalProperties": false}`))
	require.NoError(t, err)

	instance := map[string]any{"zeta": 1, "alpha": 2, "mid": 3, "beta": 4}
	first, err := s.Issues(instance)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "additionalProperties", first[0].Keyword)
	assert.Less(t, strings.Index(first[0].Message, "alpha"), strings.Index(first[0].Message, "zeta"))

	for i := 0; i < 10; i++ {
		again, err := s.Issues(instance)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPointerEscapes(t *testing.T) {
	assert.Equal(t, "/", pointer(nil))
	assert.Equal(t, "/a/0", pointer([]string{"a", "0"}))
	assert.Equal(t, "/a~1b/c~0d", pointer([]string{"a/b", "c~d"}))
}

func TestValidateOrErrorNil(t *testing.T) {
	err := ValidateFiles(filepath.Join("testdata", "valid_state.json"), filepath.Join("testdata", "state.schema.json"))
	assert.NoError(t, err)
}

func TestValidateOrErrorAggregate(t *testing.T) {
	err := ValidateFiles(filepath.Join("testdata", "invalid_state.json"), filepath.Join("testdata", "state.schema.json"))
	require.Error(t, err)
	require.True(t, IsAggregate(err))
	assert.True(t, strings.HasPrefix(err.Error(), "Validation failed (3 issues):\n01. /assumptions: "), err.Error())

	var ae *AggregateError
	require.ErrorAs(t, err, &ae)
	var b strings.Builder
	for _, is := range ae.Issues {
		fmt.Fprintf(&b, "%s [%s]\n", is.Path, is.Keyword)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "aggregate_issues", []byte(b.String()))
}

func TestValidateOrErrorDeterministic(t *testing.T) {
	instance := filepath.Join("testdata", "invalid_state.json")
	schema := filepath.Join("testdata", "state.schema.json")

	first := ValidateFiles(instance, schema)
	require.Error(t, first)
	for i := 0; i < 10; i++ {
		again := ValidateFiles(instance, schema)
		require.Error(t, again)
		assert.Equal(t, first.Error(), again.Error())
	}
}

func TestAggregateErrorFormat(t *testing.T) {
	err := &AggregateError{Issues: []Issue{
		{Path: "/", Message: "first"},
		{Path: "/a", Message: "second"},
	}}
	assert.Equal(t, "Validation failed (2 issues):\n01. /: first\n02. /a: second", err.Error())
}

func TestValidateFilesMissingInstance(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(schema, []byte(`{"type":"object"}`), 0o644))

	err := ValidateFiles(filepath.Join(dir, "missing.json"), schema)
	require.Error(t, err)
	assert.False(t, IsAggregate(err))
}
