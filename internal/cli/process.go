package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"deprime/internal/archive"
	"deprime/internal/config"
	"deprime/internal/journal"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	ConfigPath  string // profile file path
	ProfileName string
	JournalPath string // run journal database; empty disables journaling
	DryRun      bool
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process [archives...]",
		Short: "Rewrite the priming extrusion inside .3mf archives",
		Long: `Process one or more .3mf archives: locate the delimited G-code block,
zero the extrusion parameter of every motion line in it (the second-to-last
one keeps a minimal E.01 prime), and replace the archive in place.

With no arguments the command prompts for paths interactively; paths may be
quoted, as produced by dragging a file onto the terminal.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true, // errors are reported through the formatter
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "profile file (YAML)")
	cmd.Flags().StringVar(&opts.ProfileName, "profile", config.DefaultName, "processing profile")
	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "record runs in this SQLite database")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report candidate lines without writing")

	return cmd
}

func runProcess(opts *ProcessOptions, args []string, cmd *cobra.Command) error {
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

	var jnl *journal.Journal
	if opts.JournalPath != "" {
		jnl, err = journal.Open(opts.JournalPath)
		if err != nil {
			formatter.Error(ErrCodeJournal, err.Error())
			return NewExitError(ExitCommandError, err.Error())
		}
		defer jnl.Close()
	}

	r := &runner{opts: opts, formatter: formatter, profile: profile, journal: jnl}

	if len(args) == 0 {
		return runInteractive(r, cmd)
	}

	failed := 0
	for _, path := range args {
		if err := r.processOne(cmd.Context(), path); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d file(s) failed", failed, len(args)))
	}
	return nil
}

// resolveProfile picks the named profile from the profile file, or from
// the built-in set when no file is given.
func resolveProfile(configPath, name string) (config.Profile, error) {
	profiles := config.Builtin()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Profile{}, err
		}
		profiles = loaded
	}
	return profiles.Profile(name)
}

// runner processes archives one at a time with a fixed profile.
type runner struct {
	opts      *ProcessOptions
	formatter *OutputFormatter
	profile   config.Profile
	journal   *journal.Journal
}

func (r *runner) target() archive.Target {
	return archive.Target{
		Resource:    r.profile.Resource,
		StartMarker: r.profile.StartMarker,
		EndMarker:   r.profile.EndMarker,
		Extension:   r.profile.Extension,
	}
}

// processOne runs the transaction for a single archive and reports the
// outcome. The returned error is non-nil only for hard failures; a block
// with nothing to rewrite is a benign no-op.
func (r *runner) processOne(ctx context.Context, path string) error {
	r.formatter.VerboseLog("processing %s (profile=%s, resource=%s)",
		path, r.profile.Name, r.profile.Resource)
	r.formatter.Textf("\nProcessing: %s\n", path)

	if r.opts.DryRun {
		return r.planOne(ctx, path)
	}

	res, err := archive.Process(path, r.target())
	if err != nil {
		return r.reportFailure(ctx, path, err)
	}

	r.reportChanges(res.Matches, res.Changes)
	r.formatter.Textf("Updated %s\n", path)
	if r.formatter.Format == "json" {
		r.formatter.Success(res)
	}
	r.record(ctx, path, journal.OutcomeModified, "", res.Matches, res.Changes)
	return nil
}

// planOne is the dry-run path: same reporting, nothing written.
func (r *runner) planOne(ctx context.Context, path string) error {
	plan, err := archive.BuildPlan(path, r.target())
	if err != nil {
		return r.reportFailure(ctx, path, err)
	}
	if len(plan.Changes) == 0 {
		r.formatter.Textf("No matching G-code lines found to modify\n")
		r.record(ctx, path, journal.OutcomeNoMatches, "", 0, nil)
		return nil
	}

	r.reportChanges(len(plan.Changes), plan.Changes)
	r.formatter.Textf("Dry run: %s not modified\n", path)
	if r.formatter.Format == "json" {
		r.formatter.Success(plan)
	}
	r.record(ctx, path, journal.OutcomeDryRun, "", len(plan.Changes), plan.Changes)
	return nil
}

func (r *runner) reportChanges(matches int, changes []archive.LineChange) {
	r.formatter.Textf("Found %d line(s) to modify\n", matches)
	for _, c := range changes {
		r.formatter.Textf("  [line %d] %s\n", c.Line, c.Text)
	}
}

// reportFailure maps a processing error to output, journal, and exit
// semantics. NO_MATCHES is reported but not treated as a failure.
func (r *runner) reportFailure(ctx context.Context, path string, err error) error {
	code := archive.CodeOf(err)
	if code == archive.CodeNoMatches {
		r.formatter.Textf("No matching G-code lines found to modify\n")
		if r.formatter.Format == "json" {
			r.formatter.Error(string(code), err.Error())
		}
		r.record(ctx, path, journal.OutcomeNoMatches, "", 0, nil)
		return nil
	}

	r.formatter.Error(string(code), err.Error())
	r.record(ctx, path, journal.OutcomeFailed, err.Error(), 0, nil)
	return err
}

// record writes a journal row when journaling is enabled. Journal trouble
// never fails the run; it only surfaces in verbose output.
func (r *runner) record(ctx context.Context, path, outcome, detail string, matches int, changes []archive.LineChange) {
	if r.journal == nil {
		return
	}
	jc := make([]journal.Change, len(changes))
	for i, c := range changes {
		jc[i] = journal.Change{Line: c.Line, Text: c.Text}
	}
	run := journal.Run{
		ID:          journal.NewRunID(),
		ArchivePath: path,
		Resource:    r.profile.Resource,
		Profile:     r.profile.Name,
		Outcome:     outcome,
		Detail:      detail,
		Matches:     matches,
	}
	if err := r.journal.Record(ctx, run, jc); err != nil {
		r.formatter.VerboseLog("journal: %v", err)
	}
}
