package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ibmrate/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded comparisons",
		Long: `List comparisons recorded in a results log, newest first.

Example:
  ibmrate history --db results.db --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite results log (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of entries to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error("E002", fmt.Sprintf("opening results log: %v", err))
		return WrapExitError(ExitCommandError, "failed to open results log", err)
	}
	defer st.Close()

	entries, err := st.History(cmd.Context(), opts.Limit)
	if err != nil {
		_ = formatter.Error("E001", fmt.Sprintf("listing comparisons: %v", err))
		return WrapExitError(ExitCommandError, "failed to list comparisons", err)
	}

	if formatter.JSON() {
		return formatter.Success(entries, nil)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "no recorded comparisons")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%-36s  %-27s  %-20s  %-9s  %10s\n",
		"ID", "CREATED", "MEASURE", "METHOD", "RATIO")
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "%-36s  %-27s  %-20s  %-9s  %10s\n",
			e.ID, e.CreatedAt, e.Measure, e.CIMethod, formatBound(e.Ratio))
	}
	return nil
}
