package weighted

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned when values and weights differ in length.
	ErrLengthMismatch = errors.New("length of values and weights must be the same")

	// ErrZeroTotalWeight is returned when the weights sum to exactly zero,
	// including the empty input.
	ErrZeroTotalWeight = errors.New("total weight is zero")

	// ErrNonFinite is returned under NonFiniteReject when the reduction or
	// the quotient is NaN or infinite.
	ErrNonFinite = errors.New("weighted average is not finite")
)

func validateLengths(values, weights []float64) error {
	if len(values) != len(weights) {
		return fmt.Errorf("%w: values has %d elements, weights has %d",
			ErrLengthMismatch, len(values), len(weights))
	}
	return nil
}
