package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ibmrate/internal/input"
)

// ValidationResult holds validate command results.
type ValidationResult struct {
	Valid  bool `json:"valid"`
	Groups int  `json:"groups"`
	Strata int  `json:"strata"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <comparison-file>",
		Short: "Validate a comparison file without computing",
		Long: `Check that a comparison file parses and is structurally sound: exactly
two groups, non-empty strata, all role columns present, finite
non-negative values. No arithmetic is performed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	groups, _, err := input.Load(path)
	if err != nil {
		var lerr *input.LoadError
		if !errors.As(err, &lerr) {
			lerr = &input.LoadError{Code: input.ErrCodeGeneric, Message: err.Error()}
		}

		if formatter.JSON() {
			_ = formatter.Error(lerr.Code, lerr.Message)
		} else {
			fmt.Fprintln(formatter.Writer, "✗ comparison file invalid")
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", lerr.Code, lerr.Message)
		}

		// A missing or unreadable file is a command error; everything
		// else is a validation failure.
		code := ExitFailure
		if lerr.Code == input.ErrCodeReadFailed {
			code = ExitCommandError
		}
		return WrapExitError(code, "validation failed", err)
	}

	result := ValidationResult{Valid: true, Groups: 2, Strata: len(groups[0].Counts)}
	if formatter.JSON() {
		return formatter.Success(result, nil)
	}
	fmt.Fprintf(formatter.Writer, "✓ comparison file valid: %d groups, %d strata\n", result.Groups, result.Strata)
	return nil
}
