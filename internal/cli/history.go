package cli

import (
	"github.com/spf13/cobra"

	"deprime/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Limit  int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recent processing runs from the journal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "run journal database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	jnl, err := journal.Open(opts.DBPath)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error())
		return NewExitError(ExitCommandError, err.Error())
	}
	defer jnl.Close()

	runs, err := jnl.Recent(cmd.Context(), opts.Limit)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error())
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		formatter.Textf("No runs recorded\n")
		return nil
	}
	for _, r := range runs {
		formatter.Textf("%s  %-10s  %3d  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Outcome, r.Matches, r.ArchivePath)
		if opts.Verbose && r.Detail != "" {
			formatter.Textf("    %s\n", r.Detail)
		}
	}
	return nil
}
