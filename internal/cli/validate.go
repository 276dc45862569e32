package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trizel-project/epistemic-engine/internal/schemadiff"
	"github.com/trizel-project/epistemic-engine/internal/validate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Quiet bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a state registry and every state it references",
		Long: `Validate a state registry and every state it references.

The registry structure is checked first (required fields, sorted state_files,
duplicate ids, referenced files inside the registry directory). Every state is
then checked against the active rule-set profile and against the JSON Schema
(schema/epistemic_state.schema.json unless configured otherwise). An empty
--schema skips the schema pass.

Exits 0 only when the registry and every state are valid.

Example:
  trizel validate --registry states/3I_ATLAS/state_registry.json
  trizel validate --registry reg.json --schema schema/epistemic_state.schema.json --quiet`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().String("registry", "", "path to state registry (default from config)")
	cmd.Flags().String("schema", "", `JSON Schema applied to every state (default from config, "" to skip)`)
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress per-state progress")
	cmd.Flags().String("profile", "", "rule-set profile (default from config, else built-in default)")
	cmd.Flags().String("profiles", "", "YAML file with additional profiles")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter, err := opts.prepare(cmd)
	if err != nil {
		return err
	}
	logger := opts.Logger

	registry := opts.Config.Registry
	schemaPath := opts.Config.Schema

	prof, err := opts.profile()
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeConfig, "failed to resolve profile", err)
	}

	var schema *schemadiff.Schema
	if schemaPath != "" {
		schema, err = schemadiff.LoadSchema(schemaPath)
		if err != nil {
			return formatter.fail(ExitFailure, ErrCodeLoadFailed, "failed to load schema", err)
		}
	}

	showProgress := !opts.Quiet && !formatter.JSON()
	if showProgress {
		fmt.Fprintf(formatter.Writer, "Registry: %s (profile %s)\n", registry, prof.Name)
	}

	logger.Debug("validating registry", "registry", registry, "profile", prof.Name, "schema", schemaPath)
	report, err := validate.ValidateAll(registry, validate.Options{
		Profile: prof,
		Schema:  schema,
		Logger:  logger,
		Progress: func(r validate.StateResult) {
			if showProgress {
				printStateProgress(formatter.Writer, r)
			}
		},
	})
	if err != nil {
		code := ErrCodeLoadFailed
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return formatter.fail(ExitFailure, code, "failed to load registry", err)
	}

	if formatter.JSON() {
		if report.OK() {
			return formatter.Success(report)
		}
		_ = formatter.Failure(ErrCodeValidation, summaryLine(report), report)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeValidation, summaryLine(report)))
	}

	printSummary(formatter.Writer, report)
	if !report.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeValidation, summaryLine(report)))
	}
	return nil
}

func label(r validate.StateResult) string {
	if r.StateID != "" {
		return r.StateID
	}
	return r.FilePath
}

func printStateProgress(w io.Writer, r validate.StateResult) {
	fmt.Fprintf(w, "Validating %s...\n", label(r))
	if r.Valid {
		fmt.Fprintln(w, "  ✓ Valid")
		return
	}
	fmt.Fprintln(w, "  ✗ Invalid:")
	for _, msg := range r.Messages() {
		fmt.Fprintf(w, "    - %s\n", msg)
	}
}

func summaryLine(r *validate.Report) string {
	var parts []string
	if !r.Structure.Valid {
		parts = append(parts, fmt.Sprintf("registry has %d error(s)", len(r.Structure.Errors)))
	}
	if r.Invalid > 0 {
		parts = append(parts, fmt.Sprintf("%d of %d state(s) invalid", r.Invalid, r.Total))
	}
	if len(parts) == 0 {
		return "all states valid"
	}
	return strings.Join(parts, "; ")
}

func printSummary(w io.Writer, r *validate.Report) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Validation Summary")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total states: %d\n", r.Total)
	fmt.Fprintf(w, "Valid: %d\n", r.Valid)
	fmt.Fprintf(w, "Invalid: %d\n", r.Invalid)

	if !r.Structure.Valid {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Registry errors:")
		for _, msg := range r.Structure.Messages() {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	if r.Invalid > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "States with errors:")
		for _, s := range r.States {
			if s.Valid {
				continue
			}
			fmt.Fprintf(w, "\n  %s:\n", label(s))
			for _, msg := range s.Messages() {
				fmt.Fprintf(w, "    - %s\n", msg)
			}
		}
	}

	if r.OK() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "✓ All states valid!")
	}
}
