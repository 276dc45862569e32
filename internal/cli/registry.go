package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/trizel-project/epistemic-engine/internal/validate"
)

// RegistryListOptions holds flags for the registry list command.
type RegistryListOptions struct {
	*RootOptions
	All bool
}

// RegistryList is the JSON payload of registry list.
type RegistryList struct {
	Registry string           `json:"registry"`
	Shape    validate.Shape   `json:"shape"`
	Entries  []validate.Entry `json:"entries"`
}

// NewRegistryCommand creates the registry command group.
func NewRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Query a state registry",
	}
	cmd.AddCommand(newRegistryListCommand(rootOpts))
	cmd.AddCommand(newRegistryShowCommand(rootOpts))
	return cmd
}

func newRegistryListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegistryListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [registry]",
		Short: "List the active states of a registry",
		Long: `List the active states of a registry in listed order.

Files-shape registries list every path; entries-shape registries list the
entries with active: true unless --all is given.

Example:
  trizel registry list states/3I_ATLAS/state_registry.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryList(opts, args, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.All, "all", false, "include inactive entries")
	return cmd
}

func newRegistryShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <registry> <state-id>",
		Short: "Print the state record with the given id",
		Long: `Print the state record with the given id as JSON.

Example:
  trizel registry show states/3I_ATLAS/state_registry.json 3i_atlas_001`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryShow(rootOpts, args[0], args[1], cmd)
		},
	}
}

// openRegistry loads the registry at path, or the configured one.
func openRegistry(o *RootOptions, f *OutputFormatter, args []string) (*validate.Registry, error) {
	path := o.Config.Registry
	if len(args) > 0 {
		path = args[0]
	}
	reg, err := validate.LoadRegistry(path)
	if err != nil {
		code := ErrCodeLoadFailed
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return nil, f.fail(ExitFailure, code, "failed to load registry", err)
	}
	if reg.Shape() == validate.ShapeUnknown {
		return nil, f.fail(ExitFailure, ErrCodeValidation, "registry must define either 'state_files' or 'states'", nil)
	}
	return reg, nil
}

func runRegistryList(opts *RegistryListOptions, args []string, cmd *cobra.Command) error {
	formatter, err := opts.prepare(cmd)
	if err != nil {
		return err
	}
	reg, err := openRegistry(opts.RootOptions, formatter, args)
	if err != nil {
		return err
	}

	entries := reg.ActiveStates()
	if opts.All {
		entries = reg.Entries()
	}
	if entries == nil {
		entries = []validate.Entry{}
	}
	opts.Logger.Debug("registry listed", "registry", reg.Path, "shape", reg.Shape(), "entries", len(entries))

	if formatter.JSON() {
		return formatter.Success(RegistryList{Registry: reg.Path, Shape: reg.Shape(), Entries: entries})
	}

	for _, e := range entries {
		switch {
		case e.StateID == "":
			fmt.Fprintln(formatter.Writer, e.FilePath)
		case e.Active:
			fmt.Fprintf(formatter.Writer, "%s\t%s\n", e.StateID, e.FilePath)
		default:
			fmt.Fprintf(formatter.Writer, "%s\t%s\t(inactive)\n", e.StateID, e.FilePath)
		}
	}
	return nil
}

func runRegistryShow(opts *RootOptions, registryPath, stateID string, cmd *cobra.Command) error {
	formatter, err := opts.prepare(cmd)
	if err != nil {
		return err
	}
	reg, err := openRegistry(opts, formatter, []string{registryPath})
	if err != nil {
		return err
	}

	state, found, err := reg.FindState(stateID)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeLoadFailed, "failed to load state", err)
	}
	if !found {
		return formatter.fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("state not found: %s", stateID), nil)
	}

	if formatter.JSON() {
		return formatter.Success(state)
	}
	// Text mode prints the bare record so it can be piped into other tools.
	return formatter.encodeRaw(state)
}
