package domain

import "time"

// Classification is the leakage verdict derived from the analyzer's
// correlation and variation thresholds. It is a declared policy, not a proof;
// the thresholds that produced it travel with the analysis so consumers can
// re-derive or override the verdict.
type Classification string

const (
	ClassificationVulnerable   Classification = "vulnerable"
	ClassificationSecure       Classification = "secure"
	ClassificationInconclusive Classification = "inconclusive"
)

// Thresholds holds the correlation cutoffs used for classification.
type Thresholds struct {
	// High is the correlation magnitude at or above which a comparator is
	// considered leaking, provided the timing variation is nontrivial.
	High float64
	// Low is the correlation magnitude below which a comparator is
	// considered stable, provided the timing variation is small.
	Low float64
}

// RunParams records every input parameter of a measurement run so that
// downstream consumers can reproduce labels and axes without recomputation.
type RunParams struct {
	SecretLength     int
	Alphabet         string
	Iterations       int
	WarmupIterations int
	Thresholds       Thresholds
	// MinIncreasePct is the percentage time increase from k=0 to k=L required
	// for a "vulnerable" verdict.
	MinIncreasePct float64
	// MaxStablePct is the percentage variation below which a comparator may
	// be classified "secure".
	MaxStablePct float64
	// Seed is the effective RNG seed of the run, never zero: an
	// entropy-seeded run records the seed it drew so the secret and
	// candidate family can be reproduced.
	Seed uint64
}

// TestCase is one candidate input sharing exactly CorrectChars leading
// characters with the secret. For CorrectChars < secret length, the candidate
// differs from the secret at position CorrectChars.
type TestCase struct {
	CorrectChars int
	Candidate    []byte
}

// CaseSamples holds the raw per-invocation timings for one test case, in
// invocation order. Durations are nanoseconds.
type CaseSamples struct {
	CorrectChars int
	Samples      []int64
}

// CaseSummary reduces one test case's samples to summary statistics.
// All values are nanoseconds.
type CaseSummary struct {
	CorrectChars int
	Mean         float64
	Median       float64
	StdDev       float64
	Min          float64
	Max          float64
}

// ComparatorAnalysis is the full statistical analysis of one comparator over
// all test cases of a run.
type ComparatorAnalysis struct {
	Comparator string
	// Cases holds one summary per CorrectChars value, ordered ascending.
	Cases []CaseSummary
	// Raw holds the underlying samples, ordered like Cases.
	Raw []CaseSamples
	// Correlation is the Pearson r between CorrectChars and per-case mean
	// time. NaN when CorrelationDefined is false (zero variance).
	Correlation        float64
	CorrelationDefined bool
	// IncreasePct is the percentage mean-time increase from the zero-correct
	// case to the all-correct case. NaN when IncreasePctDefined is false
	// (zero mean at k=0).
	IncreasePct        float64
	IncreasePctDefined bool
	Classification     Classification
	// Thresholds are the cutoffs the Classification was derived from.
	Thresholds Thresholds
}

// RunResult is the top-level artifact of one measurement run, handed to
// reporting and persistence collaborators. Immutable after construction.
type RunResult struct {
	RunID      string
	Params     RunParams
	Vulnerable ComparatorAnalysis
	Secure     ComparatorAnalysis
	// Warnings carries non-fatal measurement degradations, e.g. a clock too
	// coarse to resolve single invocations.
	Warnings  []string
	StartedAt time.Time
	Elapsed   time.Duration
}

// NewRunResult assembles the run artifact. Pure packaging; no computation.
func NewRunResult(id string, params RunParams, vulnerable, secure ComparatorAnalysis, warnings []string, startedAt time.Time, elapsed time.Duration) RunResult {
	return RunResult{
		RunID:      id,
		Params:     params,
		Vulnerable: vulnerable,
		Secure:     secure,
		Warnings:   warnings,
		StartedAt:  startedAt,
		Elapsed:    elapsed,
	}
}
