package analysis

import "errors"

var (
	// ErrInvalidArgument reports a parameter outside its valid range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientData is returned for a candidate key length that leaves
	// fewer than two full blocks to compare.
	ErrInsufficientData = errors.New("insufficient data for key length")
	// ErrNoKeyLengthFound means no nontrivial divisor was shared by the top
	// key length candidates.
	ErrNoKeyLengthFound = errors.New("no key length found")
	// ErrNotFound is returned when the key candidate product is empty.
	ErrNotFound = errors.New("no key found")
	// ErrInvalidConfiguration rejects an embedded-key layout that cannot be
	// solved, e.g. a key copy aligned with the key period.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrIncompleteKeyRecovery means propagation from the seed left key
	// positions unknown.
	ErrIncompleteKeyRecovery = errors.New("incomplete key recovery")
)
