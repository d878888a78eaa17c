package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ibmrate/internal/input"
	"github.com/roach88/ibmrate/internal/rate"
	"github.com/roach88/ibmrate/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <comparison-file>",
		Short: "Compute standardized rates and their ratio",
		Long: `Compute both groups' directly standardized rates with small-sample
confidence intervals and the group2/group1 rate ratio from a comparison
file.

Example:
  ibmrate run comparison.yaml
  ibmrate run --db results.db comparison.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComparison(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the result in this SQLite results log")

	return cmd
}

func runComparison(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	groups, ropts, err := input.Load(path)
	if err != nil {
		var lerr *input.LoadError
		if errors.As(err, &lerr) {
			_ = formatter.Error(lerr.Code, lerr.Message)
			return WrapExitError(ExitCommandError, "failed to load comparison file", err)
		}
		_ = formatter.Error(input.ErrCodeGeneric, err.Error())
		return WrapExitError(ExitCommandError, "failed to load comparison file", err)
	}
	formatter.VerboseLog("loaded %d strata per group from %s", len(groups[0].Counts), path)

	cmp, err := rate.Compare(groups[0], groups[1], ropts)
	if err != nil {
		var ie *rate.InputError
		if errors.As(err, &ie) {
			_ = formatter.Error(string(ie.Code), ie.Message)
		} else {
			_ = formatter.Error(input.ErrCodeGeneric, err.Error())
		}
		return WrapExitError(ExitFailure, "comparison failed", err)
	}

	if opts.Database != "" {
		if err := recordComparison(opts, cmd, cmp, ropts); err != nil {
			return err
		}
	}

	if formatter.JSON() {
		return formatter.Success(cmp, cmp.Warnings)
	}

	// Warnings go to stderr so the tables stay clean for pipelines.
	for _, w := range cmp.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning [%s]: %s\n", w.Code, w.Message)
	}
	renderComparison(cmd.OutOrStdout(), cmp, ropts)
	return nil
}

func recordComparison(opts *RunOptions, cmd *cobra.Command, cmp *rate.Comparison, ropts rate.Options) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open results log", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing results log", "error", closeErr)
		}
	}()

	id, err := st.Record(cmd.Context(), cmp, ropts.WithDefaults())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record comparison", err)
	}
	slog.Info("comparison recorded", "id", id, "db", opts.Database)
	return nil
}
