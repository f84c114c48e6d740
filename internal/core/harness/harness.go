// Package harness collects per-invocation timings of a comparator over a test
// case. Every invocation is timed on its own: batching several calls into one
// timed region would amortize the early-exit effect the pipeline exists to
// expose.
package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/baditaflorin/go_timing_leak/internal/core/domain"
	"github.com/baditaflorin/go_timing_leak/internal/ports"
)

// coarseResolution is the observed clock granularity above which single
// invocations of a short comparison can no longer be resolved individually.
const coarseResolution = 200 * time.Nanosecond

// resolutionProbes is how many clock advances the resolution probe observes.
const resolutionProbes = 16

// Config holds configuration for the timing harness.
type Config struct {
	// Iterations is the number of kept samples per test case.
	Iterations int
	// WarmupIterations are unrecorded invocations run before sampling to
	// stabilize caches and branch predictors. Warmup never changes the
	// number of kept samples.
	WarmupIterations int
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return errors.New("iterations must be greater than 0")
	}
	if c.WarmupIterations < 0 {
		return errors.New("warmup iterations must not be negative")
	}
	return nil
}

// Harness measures comparator invocations with monotonic-clock deltas.
type Harness struct {
	config     Config
	logger     ports.Logger
	resolution time.Duration
	degraded   bool
}

// New creates a harness and probes the clock. A coarse clock is surfaced as a
// degradation, not an error: statistics remain computable, with less
// sensitivity.
func New(config Config, logger ports.Logger) (*Harness, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	h := &Harness{
		config: config,
		logger: logger,
	}

	h.resolution = probeResolution()
	h.degraded = h.resolution > coarseResolution
	if h.degraded {
		h.logger.Warn("Clock resolution too coarse for per-call timing",
			"resolution", h.resolution,
			"limit", coarseResolution,
		)
	}

	return h, nil
}

// Resolution returns the smallest observed clock advance.
func (h *Harness) Resolution() time.Duration { return h.resolution }

// Degraded reports whether per-call measurements are below the clock's
// useful granularity.
func (h *Harness) Degraded() bool { return h.degraded }

// Measure invokes the comparator on the test case's candidate Iterations
// times, timing each invocation independently, and returns the samples in
// invocation order. A comparator error is a contract violation between
// generator and harness and aborts the measurement.
func (h *Harness) Measure(cmp ports.Comparator, secret []byte, tc domain.TestCase) (domain.CaseSamples, error) {
	for i := 0; i < h.config.WarmupIterations; i++ {
		if _, err := cmp.Compare(tc.Candidate, secret); err != nil {
			return domain.CaseSamples{}, fmt.Errorf("harness: warmup of %s on case k=%d: %w", cmp.Name(), tc.CorrectChars, err)
		}
	}

	samples := make([]int64, h.config.Iterations)
	for i := range samples {
		start := time.Now()
		_, err := cmp.Compare(tc.Candidate, secret)
		elapsed := time.Since(start)
		if err != nil {
			return domain.CaseSamples{}, fmt.Errorf("harness: %s on case k=%d: %w", cmp.Name(), tc.CorrectChars, err)
		}
		samples[i] = elapsed.Nanoseconds()
	}

	h.logger.Debug("Measured case",
		"comparator", cmp.Name(),
		"correct_chars", tc.CorrectChars,
		"samples", len(samples),
	)

	return domain.CaseSamples{
		CorrectChars: tc.CorrectChars,
		Samples:      samples,
	}, nil
}

// probeResolution observes successive monotonic clock readings until the
// clock advances, several times, and returns the smallest advance seen.
func probeResolution() time.Duration {
	min := time.Duration(-1)
	for p := 0; p < resolutionProbes; p++ {
		start := time.Now()
		var d time.Duration
		for d == 0 {
			d = time.Since(start)
		}
		if min < 0 || d < min {
			min = d
		}
	}
	return min
}
