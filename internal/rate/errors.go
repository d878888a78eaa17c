package rate

import (
	"errors"
	"fmt"
)

// InputError represents a validation failure on caller-supplied stratum
// vectors. The whole call fails; nothing is retried.
//
// InputError includes structured fields so callers can report which group
// and stratum triggered the failure.
type InputError struct {
	// Code identifies the error category.
	Code InputErrorCode

	// Message is a human-readable description.
	Message string

	// Group identifies the offending group, when known.
	Group string

	// Stratum is the offending stratum index, or -1 when not applicable.
	Stratum int
}

// InputErrorCode categorizes input validation errors.
type InputErrorCode string

const (
	// ErrCodeEmptyInput indicates a group's stratum vectors have zero length.
	ErrCodeEmptyInput InputErrorCode = "EMPTY_INPUT"

	// ErrCodeMismatchedLength indicates stratum vectors disagree in length,
	// either within a group or between the two compared groups.
	ErrCodeMismatchedLength InputErrorCode = "MISMATCHED_LENGTH"

	// ErrCodeInvalidWeight indicates a non-finite weight, or a weight sum
	// that is non-positive or non-finite when normalization was requested.
	ErrCodeInvalidWeight InputErrorCode = "INVALID_WEIGHT"
)

// Error implements the error interface.
func (e *InputError) Error() string {
	switch {
	case e.Group != "" && e.Stratum >= 0:
		return fmt.Sprintf("%s: %s (group=%s, stratum=%d)", e.Code, e.Message, e.Group, e.Stratum)
	case e.Group != "":
		return fmt.Sprintf("%s: %s (group=%s)", e.Code, e.Message, e.Group)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func newInputError(code InputErrorCode, message string) *InputError {
	return &InputError{Code: code, Message: message, Stratum: -1}
}

// IsEmptyInput returns true if the error is an empty-input error.
// Uses errors.As to handle wrapped errors.
func IsEmptyInput(err error) bool {
	return hasCode(err, ErrCodeEmptyInput)
}

// IsMismatchedLength returns true if the error is a length-mismatch error.
func IsMismatchedLength(err error) bool {
	return hasCode(err, ErrCodeMismatchedLength)
}

// IsInvalidWeight returns true if the error is an invalid-weight error.
func IsInvalidWeight(err error) bool {
	return hasCode(err, ErrCodeInvalidWeight)
}

func hasCode(err error, code InputErrorCode) bool {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// Warning is a non-fatal diagnostic attached to a Comparison. The
// computation proceeded; the caller decides whether to surface it.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WarnCodeWeightMismatch indicates the two groups' standard weight vectors
// differ beyond tolerance. Group 1's weights were used for both groups,
// per the SEER convention of a single shared standard population.
const WarnCodeWeightMismatch = "WEIGHT_MISMATCH"
