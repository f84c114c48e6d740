// timing_leak.go
// Package timingleak measures the timing side channel of naive secret
// comparison and verifies that a constant-time comparison closes it.
// For a secret of length L it builds one candidate per number of correct
// leading characters k in [0, L], times M invocations of each comparator on
// each candidate, and reduces the samples to per-case statistics, a Pearson
// correlation between k and mean time, and a leakage verdict:
//
//	|r| >= high threshold and a nontrivial time increase  -> "vulnerable"
//	|r| <  low threshold and a small time variation       -> "secure"
//	anything in between                                    -> "inconclusive"
//
// The pipeline runs strictly on one goroutine: concurrency would perturb the
// very timings being measured. This version uses the functional options
// pattern to allow configuration of parameters like secret length, alphabet,
// iteration count, classification thresholds, seed, and logging.
package timingleak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/baditaflorin/go_timing_leak/internal/adapters/logger"
	"github.com/baditaflorin/go_timing_leak/internal/core/analyze"
	"github.com/baditaflorin/go_timing_leak/internal/core/compare"
	"github.com/baditaflorin/go_timing_leak/internal/core/domain"
	"github.com/baditaflorin/go_timing_leak/internal/core/generate"
	"github.com/baditaflorin/go_timing_leak/internal/core/harness"
	"github.com/baditaflorin/go_timing_leak/internal/ports"
	"github.com/baditaflorin/go_timing_leak/internal/warmup"
)

// Default configuration values.
const (
	DefaultSecretLength   = 8
	DefaultAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	DefaultIterations     = 1000
	DefaultHighThreshold  = 0.7
	DefaultLowThreshold   = 0.3
	DefaultMinIncreasePct = 10.0
	DefaultMaxStablePct   = 10.0
)

// Convenience aliases so callers do not need to import the domain package.
type (
	RunResult          = domain.RunResult
	ComparatorAnalysis = domain.ComparatorAnalysis
	CaseSummary        = domain.CaseSummary
	Thresholds         = domain.Thresholds
	Classification     = domain.Classification
)

// Re-exported classification labels.
const (
	ClassificationVulnerable   = domain.ClassificationVulnerable
	ClassificationSecure       = domain.ClassificationSecure
	ClassificationInconclusive = domain.ClassificationInconclusive
)

// Config holds configuration options for a measurement run.
type Config struct {
	SecretLength     int
	Alphabet         string
	Iterations       int
	WarmupIterations int
	Thresholds       domain.Thresholds
	MinIncreasePct   float64
	MaxStablePct     float64
	Seed             uint64
	// Logger for tracing pipeline steps.
	Logger ports.Logger
}

// Validate checks if the configuration is valid. Validation runs before any
// measurement so misconfiguration never costs a measurement pass.
func (c Config) Validate() error {
	if c.SecretLength <= 0 {
		return errors.New("secret length must be greater than 0")
	}
	if c.Iterations <= 0 {
		return errors.New("iterations must be greater than 0")
	}
	if len(c.Alphabet) < 2 {
		return errors.New("alphabet must contain at least 2 symbols")
	}
	return nil
}

// Option defines a functional option for configuring the experiment.
type Option func(*Config)

// WithSecretLength sets the secret length.
func WithSecretLength(n int) Option {
	return func(cfg *Config) {
		cfg.SecretLength = n
	}
}

// WithAlphabet sets the symbol set secrets are drawn from.
func WithAlphabet(alphabet string) Option {
	return func(cfg *Config) {
		cfg.Alphabet = alphabet
	}
}

// WithIterations sets the number of timed invocations per test case.
func WithIterations(n int) Option {
	return func(cfg *Config) {
		cfg.Iterations = n
	}
}

// WithWarmup sets the number of unrecorded invocations run per case before
// sampling. The number of kept samples per case never changes.
func WithWarmup(n int) Option {
	return func(cfg *Config) {
		cfg.WarmupIterations = n
	}
}

// WithThresholds sets the correlation cutoffs for classification.
func WithThresholds(high, low float64) Option {
	return func(cfg *Config) {
		cfg.Thresholds = domain.Thresholds{High: high, Low: low}
	}
}

// WithClassificationBands sets the percentage-increase bands backing the
// "vulnerable" and "secure" verdicts.
func WithClassificationBands(minIncreasePct, maxStablePct float64) Option {
	return func(cfg *Config) {
		cfg.MinIncreasePct = minIncreasePct
		cfg.MaxStablePct = maxStablePct
	}
}

// WithSeed sets the RNG seed for reproducibility. Zero uses entropy.
func WithSeed(seed uint64) Option {
	return func(cfg *Config) {
		cfg.Seed = seed
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg ports.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = lg
	}
}

// Experiment runs the full measurement pipeline with configurable parameters.
type Experiment struct {
	config   Config
	analyzer *analyze.Analyzer
}

// New creates a new Experiment with the provided functional options.
// If no logger is provided, a default logger is created.
func New(opts ...Option) (*Experiment, error) {
	cfg := Config{
		SecretLength:   DefaultSecretLength,
		Alphabet:       DefaultAlphabet,
		Iterations:     DefaultIterations,
		Thresholds:     domain.Thresholds{High: DefaultHighThreshold, Low: DefaultLowThreshold},
		MinIncreasePct: DefaultMinIncreasePct,
		MaxStablePct:   DefaultMaxStablePct,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// If no logger is set, create a default logger.
	if cfg.Logger == nil {
		lg, err := logger.NewStdLogger()
		if err != nil {
			return nil, fmt.Errorf("create default logger: %w", err)
		}
		cfg.Logger = lg
	}

	analyzer, err := analyze.New(analyze.Config{
		Thresholds:     cfg.Thresholds,
		MinIncreasePct: cfg.MinIncreasePct,
		MaxStablePct:   cfg.MaxStablePct,
	}, cfg.Logger)
	if err != nil {
		return nil, err
	}

	return &Experiment{config: cfg, analyzer: analyzer}, nil
}

// Run executes generate -> measure -> analyze -> aggregate and returns the
// run artifact. The context is consulted between cases, never inside a timed
// region.
func (e *Experiment) Run(ctx context.Context) (domain.RunResult, error) {
	cfg := e.config
	startedAt := time.Now()

	cfg.Logger.Info("Starting timing leak measurement",
		"secret_length", cfg.SecretLength,
		"alphabet_size", len(cfg.Alphabet),
		"iterations", cfg.Iterations,
		"warmup_iterations", cfg.WarmupIterations,
		"seed", cfg.Seed,
	)

	gen, err := generate.New(generate.Config{Alphabet: cfg.Alphabet, Seed: cfg.Seed}, cfg.Logger)
	if err != nil {
		return domain.RunResult{}, err
	}
	secret, err := gen.Secret(cfg.SecretLength)
	if err != nil {
		return domain.RunResult{}, err
	}
	cases := gen.Cases(secret)

	h, err := harness.New(harness.Config{
		Iterations:       cfg.Iterations,
		WarmupIterations: cfg.WarmupIterations,
	}, cfg.Logger)
	if err != nil {
		return domain.RunResult{}, err
	}

	var warnings []string
	if h.Degraded() {
		warnings = append(warnings, fmt.Sprintf(
			"clock resolution %v is too coarse for per-call timing; statistics lose sensitivity",
			h.Resolution(),
		))
	}

	earlyExit := compare.EarlyExit{}
	constantTime := compare.ConstantTime{}

	// Warmup is opt-in: the default run reproduces the straightforward
	// cold-start measurement.
	if cfg.WarmupIterations > 0 {
		wm := warmup.NewManager(cfg.Logger, warmup.Config{
			Iterations:  cfg.WarmupIterations,
			InputLength: cfg.SecretLength,
			ForceGC:     true,
		})
		wm.RegisterComparator(earlyExit)
		wm.RegisterComparator(constantTime)
		wm.WarmUp(ctx)
	}

	vulnerable, err := e.measureAndAnalyze(ctx, h, earlyExit, secret, cases)
	if err != nil {
		return domain.RunResult{}, err
	}
	secure, err := e.measureAndAnalyze(ctx, h, constantTime, secret, cases)
	if err != nil {
		return domain.RunResult{}, err
	}

	result := domain.NewRunResult(
		uuid.NewString(),
		domain.RunParams{
			SecretLength:     cfg.SecretLength,
			Alphabet:         cfg.Alphabet,
			Iterations:       cfg.Iterations,
			WarmupIterations: cfg.WarmupIterations,
			Thresholds:       cfg.Thresholds,
			MinIncreasePct:   cfg.MinIncreasePct,
			MaxStablePct:     cfg.MaxStablePct,
			// The effective seed, so an entropy-seeded run stays reproducible.
			Seed: gen.Seed(),
		},
		vulnerable,
		secure,
		warnings,
		startedAt,
		time.Since(startedAt),
	)

	cfg.Logger.Info("Measurement run completed",
		"run_id", result.RunID,
		"elapsed", result.Elapsed,
		"vulnerable_verdict", result.Vulnerable.Classification,
		"secure_verdict", result.Secure.Classification,
	)

	return result, nil
}

// measureAndAnalyze times one comparator over every case and reduces the
// samples to its analysis.
func (e *Experiment) measureAndAnalyze(ctx context.Context, h *harness.Harness, cmp ports.Comparator, secret []byte, cases []domain.TestCase) (domain.ComparatorAnalysis, error) {
	samples := make([]domain.CaseSamples, 0, len(cases))
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return domain.ComparatorAnalysis{}, fmt.Errorf("measurement cancelled: %w", err)
		}
		cs, err := h.Measure(cmp, secret, tc)
		if err != nil {
			return domain.ComparatorAnalysis{}, err
		}
		samples = append(samples, cs)
	}
	return e.analyzer.Analyze(cmp.Name(), samples)
}
