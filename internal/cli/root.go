package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trizel-project/epistemic-engine/internal/config"
	"github.com/trizel-project/epistemic-engine/internal/rules"
)

// RootOptions holds global flags for all commands, plus the state each
// invocation resolves before running.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Resolved by prepare.
	Config  config.Config
	Logger  *slog.Logger
	TraceID string

	// LogWriter overrides where log records go (default: command stderr).
	LogWriter io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the trizel CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trizel",
		Short: "Epistemic state validation engine",
		Long: `Validate epistemic state records and registries, report JSON Schema
violations in a stable order, and record deterministic contract-only runs.

No analysis is performed: every run is a contract-only run.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./"+config.DefaultFile+")")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewLintCommand(opts))
	cmd.AddCommand(NewRegistryCommand(opts))
	cmd.AddCommand(NewProfilesCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// prepare resolves configuration, the logger and the trace id for one
// invocation. Subcommands call it first so they also work when executed
// without the root command.
func (o *RootOptions) prepare(cmd *cobra.Command) (*OutputFormatter, error) {
	if o.Format == "" {
		o.Format = "text"
	}
	formatter := &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
	if !isValidFormat(o.Format) {
		formatter.Format = "text"
		return formatter, formatter.fail(ExitCommandError, ErrCodeConfig, fmt.Sprintf("invalid format %q", o.Format), nil)
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	o.TraceID = id.String()
	formatter.TraceID = o.TraceID

	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	w := o.LogWriter
	if w == nil {
		w = cmd.ErrOrStderr()
	}
	o.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).
		With("trace_id", o.TraceID, "command", cmd.Name())

	cfg, err := config.Load(o.ConfigFile, cmd.Flags())
	if err != nil {
		return formatter, formatter.fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err)
	}
	o.Config = cfg
	if cfg.File != "" {
		o.Logger.Debug("config loaded", "file", cfg.File)
	}
	return formatter, nil
}

// profileSet returns the built-in profiles plus any from the configured
// profiles file.
func (o *RootOptions) profileSet() (*rules.Set, error) {
	set, err := rules.Builtin()
	if err != nil {
		return nil, err
	}
	if o.Config.ProfilesFile == "" {
		return set, nil
	}
	data, err := os.ReadFile(o.Config.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	if err := set.LoadYAML(data); err != nil {
		return nil, err
	}
	return set, nil
}

// profile resolves the configured profile, or the default when none is set.
func (o *RootOptions) profile() (rules.Profile, error) {
	set, err := o.profileSet()
	if err != nil {
		return rules.Profile{}, err
	}
	return set.Get(o.Config.Profile)
}
