package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// runInteractive drives the prompt loop used when process gets no
// arguments: read a path, process it, ask whether to continue. Paths may
// arrive wrapped in quotes when a file is dragged onto the terminal.
// Empty input re-prompts; "q" or end of input quits.
func runInteractive(r *runner, cmd *cobra.Command) error {
	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "No file provided. Enter a path below.")

	for {
		fmt.Fprintf(out, "Enter %s file path (or 'q' to quit): ", r.profile.Extension)
		if !in.Scan() {
			return in.Err()
		}
		path := strings.TrimSpace(in.Text())
		path = strings.Trim(path, `"'`)

		if strings.EqualFold(path, "q") {
			return nil
		}
		if path == "" {
			fmt.Fprintln(out, "No file path entered. Please try again.")
			continue
		}

		if err := r.processOne(cmd.Context(), path); err != nil {
			fmt.Fprintln(out, "Please try again with a valid file.")
			continue
		}

		fmt.Fprint(out, "Process another file? (y/n): ")
		if !in.Scan() {
			return in.Err()
		}
		if !strings.EqualFold(strings.TrimSpace(in.Text()), "y") {
			return nil
		}
	}
}
