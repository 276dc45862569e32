package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trizel-project/epistemic-engine/internal/rules"
)

// ProfileInfo describes one available profile.
type ProfileInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required"`
	Default     bool     `json:"default"`
}

// NewProfilesCommand creates the profiles command.
func NewProfilesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the available rule-set profiles",
		Long: `List the built-in rule-set profiles plus any loaded with --profiles.
The default profile is marked with '*'.

Example:
  trizel profiles
  trizel profiles --profiles extra_profiles.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfiles(rootOpts, cmd)
		},
	}
	cmd.Flags().String("profiles", "", "YAML file with additional profiles")
	return cmd
}

func runProfiles(opts *RootOptions, cmd *cobra.Command) error {
	formatter, err := opts.prepare(cmd)
	if err != nil {
		return err
	}

	set, err := opts.profileSet()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, "failed to load profiles", err)
	}

	infos := make([]ProfileInfo, 0, len(set.Names()))
	for _, name := range set.Names() {
		p, err := set.Get(name)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeConfig, "failed to load profiles", err)
		}
		infos = append(infos, profileInfo(p, name == set.Default))
	}

	if formatter.JSON() {
		return formatter.Success(infos)
	}
	for _, info := range infos {
		mark := " "
		if info.Default {
			mark = "*"
		}
		if info.Description == "" {
			fmt.Fprintf(formatter.Writer, "%s %s\n", mark, info.Name)
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s %s\t%s\n", mark, info.Name, info.Description)
	}
	return nil
}

func profileInfo(p rules.Profile, isDefault bool) ProfileInfo {
	return ProfileInfo{
		Name:        p.Name,
		Description: p.Description,
		Required:    p.Required,
		Default:     isDefault,
	}
}
