package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "trizel", cmd.Use)
	assert.Contains(t, cmd.Long, "contract-only")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	paths := [][]string{
		{"validate"},
		{"run"},
		{"lint"},
		{"registry", "list"},
		{"registry", "show"},
		{"profiles"},
	}

	for _, path := range paths {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"validate", []string{"registry", "schema", "quiet", "profile", "profiles"}},
		{"run", []string{"run-id", "method-id", "input-scope", "layout", "output-root", "method-registry"}},
		{"lint", []string{"schema"}},
		{"profiles", []string{"profiles"}},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}

	validate, _, err := root.Find([]string{"validate"})
	require.NoError(t, err)
	assert.Equal(t, "q", validate.Flags().Lookup("quiet").Shorthand)
}

func TestInvalidFormatRejected(t *testing.T) {
	workspace(t)
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--format", "xml", "profiles"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestPrepareInvalidFormat(t *testing.T) {
	workspace(t)
	buf := &bytes.Buffer{}
	cmd := NewProfilesCommand(&RootOptions{Format: "yaml", LogWriter: io.Discard})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E006]")
}

func TestConfigFileDrivesDefaults(t *testing.T) {
	workspace(t)
	writeJSON(t, "alt/registry.json", map[string]any{
		"registry_version": "1.0.0",
		"system":           "TRIZEL",
		"created":          "2025-07-01T00:00:00Z",
		"state_files":      []any{},
	})
	require.NoError(t, writeFile(".trizel.yaml", "registry: alt/registry.json\n"))

	out, err := execute(t, NewValidateCommand, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Registry: alt/registry.json")
	assert.Contains(t, out, "Total states: 0")
}

func TestVerboseLogsToLogWriter(t *testing.T) {
	workspace(t)
	logs := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true, LogWriter: logs})
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"--quiet"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, logs.String(), "level=DEBUG")
	assert.Contains(t, logs.String(), "trace_id=")
	assert.Contains(t, logs.String(), "command=validate")
}
