// Package rate computes SEER-style directly age-standardized rates and
// rate ratios for incidence-based mortality (IBM) analysis.
//
// The package is a pure computational core with three layers:
//
//   - DSR: a directly standardized rate and its variance from per-stratum
//     (count, population, weight) vectors.
//   - SmallSampleInterval: a confidence interval for the standardized rate
//     using the Fay-Feuer or Tiwari chi-square procedure.
//   - Compare: the orchestrator, producing one rate row per group and a
//     rate-ratio row with a delta-method log-normal interval.
//
// All functions are deterministic and free of side effects. Independent
// calls are safe to run concurrently; nothing in the package holds state.
//
// Undefined confidence bounds (the degenerate small-sample case) are
// represented as nil pointers, never as NaN sentinels, so downstream
// consumers cannot mistake them for real bounds.
//
// Validation failures are reported as *InputError with a stable Code.
// The one non-fatal condition, a weight mismatch between the two groups,
// is carried as a typed Warning on the result so callers can test for it
// deterministically.
package rate
