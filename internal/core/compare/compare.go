// Package compare implements the two secret-matching strategies whose timing
// behavior the pipeline measures: a naive early-exit scan and a constant-time
// scan. The early-exit short-circuit is deliberate and must not be "fixed";
// it is the leak being demonstrated.
package compare

import "errors"

// ErrLengthMismatch is returned when a comparator receives inputs of
// different lengths. The generator always emits candidates of the secret's
// length, so hitting this indicates a wiring bug, not a runtime condition.
var ErrLengthMismatch = errors.New("compare: inputs differ in length")

// EarlyExit compares left to right and returns on the first mismatch, so its
// running time grows with the number of leading correct characters.
type EarlyExit struct{}

// Name implements ports.Comparator.
func (EarlyExit) Name() string { return "early_exit" }

// Compare implements ports.Comparator.
func (EarlyExit) Compare(candidate, secret []byte) (bool, error) {
	if len(candidate) != len(secret) {
		return false, ErrLengthMismatch
	}
	for i := range secret {
		if candidate[i] != secret[i] {
			// Timing leak: returns as soon as a position disagrees.
			return false, nil
		}
	}
	return true, nil
}

// ConstantTime scans every position unconditionally, accumulating differences
// with OR-of-XOR, so its running time does not depend on where the first
// mismatch occurs.
//
// This demonstrates the accumulator technique; it makes no guarantee against
// compiler or CPU-level optimization removing the property.
type ConstantTime struct{}

// Name implements ports.Comparator.
func (ConstantTime) Name() string { return "constant_time" }

// Compare implements ports.Comparator.
func (ConstantTime) Compare(candidate, secret []byte) (bool, error) {
	if len(candidate) != len(secret) {
		return false, ErrLengthMismatch
	}
	var acc byte
	for i := range secret {
		acc |= candidate[i] ^ secret[i]
	}
	return acc == 0, nil
}
