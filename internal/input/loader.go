// Package input loads comparison files: YAML documents holding two
// groups' pre-extracted per-stratum rows plus estimator options.
//
// Row selection against the source table (demographic filtering,
// spreadsheet parsing) happens upstream of this tool; a comparison file
// already contains the final numeric vectors. The only flexibility is
// the column-role mapping, which picks the row keys holding the event
// count, population, and standard weight.
package input

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ibmrate/internal/rate"
)

// Error code constants - unified across loader failures.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // File read error
	ErrCodeParseFailed = "E003" // YAML decode error

	ErrCodeGroupCount    = "E101" // Not exactly two groups
	ErrCodeNoStrata      = "E102" // Group with no stratum rows
	ErrCodeMissingColumn = "E103" // Stratum row missing a role column
	ErrCodeBadValue      = "E104" // Non-finite or negative cell value
	ErrCodeBadMethod     = "E105" // Unknown CI method selector
	ErrCodeBadAlpha      = "E106" // Alpha outside (0, 1)
)

// LoadError represents a failure to load or validate a comparison file.
type LoadError struct {
	Code    string
	Message string
	Path    string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ComparisonFile is the on-disk YAML schema. Stratum rows are free-form
// key/value maps so the column-role mapping can pick arbitrary keys.
type ComparisonFile struct {
	// Measure labels the ratio row, e.g. "IBM rate ratio".
	Measure string `yaml:"measure,omitempty"`

	// Alpha is the two-sided significance level. Defaults to 0.05.
	Alpha float64 `yaml:"alpha,omitempty"`

	// Scale is the display scale for rates. Defaults to 100000.
	Scale float64 `yaml:"scale,omitempty"`

	// Method selects the CI procedure: "fayfeuer" (default) or "tiwari".
	Method string `yaml:"method,omitempty"`

	// NormalizeWeights controls normalization of the standard weights.
	// Defaults to true when omitted.
	NormalizeWeights *bool `yaml:"normalize_weights,omitempty"`

	// Columns maps the three column roles onto stratum row keys.
	Columns ColumnRoles `yaml:"columns,omitempty"`

	// Groups holds exactly two groups, stratum-aligned by position.
	Groups []GroupSpec `yaml:"groups"`
}

// ColumnRoles names the stratum row keys holding each role. Empty roles
// fall back to "count", "population", and "weight".
type ColumnRoles struct {
	Count      string `yaml:"count,omitempty"`
	Population string `yaml:"population,omitempty"`
	Weight     string `yaml:"weight,omitempty"`
}

func (c ColumnRoles) withDefaults() ColumnRoles {
	if c.Count == "" {
		c.Count = "count"
	}
	if c.Population == "" {
		c.Population = "population"
	}
	if c.Weight == "" {
		c.Weight = "weight"
	}
	return c
}

// GroupSpec is one group's rows as they appear on disk.
type GroupSpec struct {
	Label  string               `yaml:"label"`
	Strata []map[string]float64 `yaml:"strata"`
}

// Load reads and validates a comparison file, returning the two groups
// and the estimator options it specifies. Validation is structural and
// fail-fast; semantic validation (length agreement between groups,
// weight finiteness) belongs to rate.Compare.
func Load(path string) ([2]rate.Group, rate.Options, error) {
	var none [2]rate.Group

	raw, err := os.ReadFile(path)
	if err != nil {
		return none, rate.Options{}, &LoadError{
			Code:    ErrCodeReadFailed,
			Message: fmt.Sprintf("reading comparison file: %v", err),
			Path:    path,
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var file ComparisonFile
	if err := dec.Decode(&file); err != nil {
		return none, rate.Options{}, &LoadError{
			Code:    ErrCodeParseFailed,
			Message: fmt.Sprintf("decoding YAML: %v", err),
			Path:    path,
		}
	}

	groups, opts, lerr := Build(&file)
	if lerr != nil {
		lerr.Path = path
		return none, rate.Options{}, lerr
	}
	return groups, opts, nil
}

// Build converts a decoded comparison file into estimator inputs.
// Exposed separately so callers holding an in-memory document (tests,
// future transports) skip the file system.
func Build(file *ComparisonFile) ([2]rate.Group, rate.Options, *LoadError) {
	var none [2]rate.Group

	if len(file.Groups) != 2 {
		return none, rate.Options{}, &LoadError{
			Code:    ErrCodeGroupCount,
			Message: fmt.Sprintf("comparison requires exactly two groups, got %d", len(file.Groups)),
		}
	}

	method, err := rate.ParseMethod(file.Method)
	if err != nil {
		return none, rate.Options{}, &LoadError{Code: ErrCodeBadMethod, Message: err.Error()}
	}
	if file.Alpha < 0 || file.Alpha >= 1 {
		return none, rate.Options{}, &LoadError{
			Code:    ErrCodeBadAlpha,
			Message: fmt.Sprintf("alpha must be in (0, 1), got %v", file.Alpha),
		}
	}

	cols := file.Columns.withDefaults()
	var groups [2]rate.Group
	for gi := range file.Groups {
		g, lerr := buildGroup(file.Groups[gi], gi, cols)
		if lerr != nil {
			return none, rate.Options{}, lerr
		}
		groups[gi] = g
	}

	opts := rate.Options{
		Measure: file.Measure,
		Alpha:   file.Alpha,
		Scale:   file.Scale,
		Method:  method,
	}
	if file.NormalizeWeights != nil && !*file.NormalizeWeights {
		opts.RawWeights = true
	}
	return groups, opts, nil
}

func buildGroup(spec GroupSpec, index int, cols ColumnRoles) (rate.Group, *LoadError) {
	label := spec.Label
	if label == "" {
		label = fmt.Sprintf("group %d", index+1)
	}
	if len(spec.Strata) == 0 {
		return rate.Group{}, &LoadError{
			Code:    ErrCodeNoStrata,
			Message: fmt.Sprintf("group %q has no strata", label),
		}
	}

	g := rate.Group{
		Label:  label,
		Counts: make([]float64, len(spec.Strata)),
		Pop:    make([]float64, len(spec.Strata)),
		Weight: make([]float64, len(spec.Strata)),
	}
	for si, row := range spec.Strata {
		for _, role := range []struct {
			key  string
			dest []float64
		}{
			{cols.Count, g.Counts},
			{cols.Population, g.Pop},
			{cols.Weight, g.Weight},
		} {
			v, ok := row[role.key]
			if !ok {
				return rate.Group{}, &LoadError{
					Code:    ErrCodeMissingColumn,
					Message: fmt.Sprintf("group %q stratum %d is missing column %q", label, si, role.key),
				}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return rate.Group{}, &LoadError{
					Code:    ErrCodeBadValue,
					Message: fmt.Sprintf("group %q stratum %d column %q: value must be finite and non-negative, got %v", label, si, role.key, v),
				}
			}
			role.dest[si] = v
		}
	}
	return g, nil
}
