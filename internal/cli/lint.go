package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trizel-project/epistemic-engine/internal/document"
	"github.com/trizel-project/epistemic-engine/internal/schemadiff"
)

// LintOptions holds flags for the lint command.
type LintOptions struct {
	*RootOptions
	Schema string
}

// LintResult is the JSON payload of the lint command.
type LintResult struct {
	Instance string             `json:"instance"`
	Schema   string             `json:"schema"`
	Valid    bool               `json:"valid"`
	Issues   []schemadiff.Issue `json:"issues"`
}

// NewLintCommand creates the lint command.
func NewLintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lint <instance>",
		Short: "Report every JSON Schema violation of a document",
		Long: `Report every JSON Schema violation of a document, one "path: message"
line per issue, sorted by path then message. Output is identical across runs.

Example:
  trizel lint directive.json --schema schema/directive.schema.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "JSON Schema to validate against (required)")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runLint(opts *LintOptions, instancePath string, cmd *cobra.Command) error {
	formatter, err := opts.prepare(cmd)
	if err != nil {
		return err
	}

	schema, err := schemadiff.LoadSchema(opts.Schema)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeLoadFailed, "failed to load schema", err)
	}
	instance, err := document.Load(instancePath)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeLoadFailed, "failed to load instance", err)
	}

	issues, err := schema.Issues(instance)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeGeneric, "schema validation failed", err)
	}
	opts.Logger.Debug("lint finished", "instance", instancePath, "issues", len(issues))

	result := LintResult{
		Instance: instancePath,
		Schema:   opts.Schema,
		Valid:    len(issues) == 0,
		Issues:   issues,
	}
	if result.Issues == nil {
		result.Issues = []schemadiff.Issue{}
	}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		msg := (&schemadiff.AggregateError{Issues: issues}).Error()
		_ = formatter.Failure(ErrCodeValidation, msg, result)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d issue(s)", ErrCodeValidation, len(issues)))
	}

	for _, is := range issues {
		fmt.Fprintln(formatter.Writer, is.String())
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d issue(s)", ErrCodeValidation, len(issues)))
	}
	fmt.Fprintln(formatter.Writer, "✓ No issues")
	return nil
}
