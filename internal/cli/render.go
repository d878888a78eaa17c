package cli

import (
	"fmt"
	"io"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/ibmrate/internal/rate"
)

// naLabel renders an undefined bound or ratio in text output.
const naLabel = "NA"

// renderComparison writes the two rate rows and the ratio row as
// fixed-width text tables. Undefined bounds render as NA.
func renderComparison(w io.Writer, cmp *rate.Comparison, opts rate.Options) {
	opts = opts.WithDefaults()

	fmt.Fprintf(w, "Standardized rates (per %s, %s %s CI)\n\n",
		formatScale(opts.Scale), opts.Method.Label(), confidenceLabel(opts.Alpha))
	fmt.Fprintf(w, "%-18s %6s %12s %12s %12s\n", "GROUP", "STRATA", "RATE", "CI LOW", "CI HIGH")
	for _, row := range cmp.Rates {
		fmt.Fprintf(w, "%-18s %6d %12.4f %12s %12s\n",
			row.GroupLabel, row.Strata, row.Rate, formatBound(row.CILow), formatBound(row.CIHigh))
	}

	fmt.Fprintf(w, "\nRate ratio (%s %s CI)\n\n", cmp.Ratio.CIMethod, confidenceLabel(opts.Alpha))
	fmt.Fprintf(w, "%-18s %12s %12s %12s\n", "MEASURE", "ESTIMATE", "CI LOW", "CI HIGH")
	fmt.Fprintf(w, "%-18s %12s %12s %12s\n",
		cmp.Ratio.Measure, formatBound(cmp.Ratio.Estimate),
		formatBound(cmp.Ratio.CILow), formatBound(cmp.Ratio.CIHigh))
}

func formatBound(v *float64) string {
	if v == nil {
		return naLabel
	}
	return fmt.Sprintf("%.4f", *v)
}

// formatScale renders the display scale with locale separators, e.g.
// "100,000". Non-integral scales fall back to plain %g.
func formatScale(scale float64) string {
	if scale == math.Trunc(scale) {
		return message.NewPrinter(language.English).Sprintf("%d", int64(scale))
	}
	return fmt.Sprintf("%g", scale)
}

// confidenceLabel renders the two-sided confidence level, e.g. "95%".
func confidenceLabel(alpha float64) string {
	return fmt.Sprintf("%g%%", 100-100*alpha)
}
