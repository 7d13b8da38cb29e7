package cli

import (
	"github.com/spf13/cobra"

	"deprime/internal/archive"
	"deprime/internal/config"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	ConfigPath  string
	ProfileName string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the editable block and planned rewrites without writing",
		Long: `Inspect reads the instruction stream out of the archive, locates the
delimited block, and reports which lines a process run would rewrite.
The archive is never modified.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "profile file (YAML)")
	cmd.Flags().StringVar(&opts.ProfileName, "profile", config.DefaultName, "processing profile")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	profile, err := resolveProfile(opts.ConfigPath, opts.ProfileName)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error())
		return NewExitError(ExitCommandError, err.Error())
	}

	plan, err := archive.BuildPlan(path, archive.Target{
		Resource:    profile.Resource,
		StartMarker: profile.StartMarker,
		EndMarker:   profile.EndMarker,
		Extension:   profile.Extension,
	})
	if err != nil {
		code := string(archive.CodeOf(err))
		formatter.Error(code, err.Error())
		return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
	}

	if formatter.Format == "json" {
		return formatter.Success(plan)
	}

	formatter.Textf("Archive:  %s\n", plan.Path)
	formatter.Textf("Resource: %s\n", plan.Resource)
	formatter.Textf("Block:    lines %d-%d (%d line(s))\n",
		plan.BlockStart, plan.BlockEnd-1, plan.BlockLines)
	if len(plan.Changes) == 0 {
		formatter.Textf("No matching G-code lines found to modify\n")
		return nil
	}
	formatter.Textf("Would rewrite %d line(s):\n", len(plan.Changes))
	for _, c := range plan.Changes {
		formatter.Textf("  [line %d] %s\n", c.Line, c.Text)
	}
	return nil
}
