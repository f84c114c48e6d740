package ports

// Comparator defines the interface for secret-matching implementations whose
// timing behavior is under measurement.
type Comparator interface {
	// Name identifies the implementation in analysis output.
	Name() string

	// Compare reports whether candidate equals secret. Implementations must
	// return an error when the two inputs differ in length.
	Compare(candidate, secret []byte) (bool, error)
}
