// Package analyze reduces raw per-case timing samples to summary statistics
// and a leakage verdict.
package analyze

import (
	"errors"
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"

	"github.com/baditaflorin/go_timing_leak/internal/core/domain"
	"github.com/baditaflorin/go_timing_leak/internal/ports"
)

// Config holds configuration for the statistical analyzer.
type Config struct {
	Thresholds domain.Thresholds
	// MinIncreasePct is the k=0 to k=L percentage increase required, together
	// with a high correlation, for a "vulnerable" verdict.
	MinIncreasePct float64
	// MaxStablePct is the absolute percentage variation below which, together
	// with a low correlation, a comparator is "secure".
	MaxStablePct float64
}

// DefaultConfig returns the default analyzer configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:     domain.Thresholds{High: 0.7, Low: 0.3},
		MinIncreasePct: 10,
		MaxStablePct:   10,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Thresholds.Low < 0 || c.Thresholds.High > 1 {
		return errors.New("correlation thresholds must be within [0, 1]")
	}
	if c.Thresholds.Low >= c.Thresholds.High {
		return errors.New("low correlation threshold must be below high threshold")
	}
	if c.MinIncreasePct < 0 || c.MaxStablePct < 0 {
		return errors.New("percentage bands must not be negative")
	}
	return nil
}

// Analyzer turns a comparator's raw case samples into a ComparatorAnalysis.
type Analyzer struct {
	config Config
	logger ports.Logger
}

// New creates an analyzer.
func New(config Config, logger ports.Logger) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{config: config, logger: logger}, nil
}

// Analyze summarizes every case, correlates the per-case mean with the number
// of correct leading characters, and classifies the comparator.
//
// The correlation is computed over the (k, mean_k) pairs, one per case, never
// over the pooled raw samples: the question is how the average trends with k.
// Degenerate statistics (zero variance, zero mean at k=0) become explicit
// undefined values in the output, not errors; a long measurement pass must
// not be discarded over a representable edge case.
func (a *Analyzer) Analyze(comparator string, cases []domain.CaseSamples) (domain.ComparatorAnalysis, error) {
	if len(cases) == 0 {
		return domain.ComparatorAnalysis{}, errors.New("analyze: no cases")
	}

	summaries := make([]domain.CaseSummary, len(cases))
	ks := make([]float64, len(cases))
	means := make([]float64, len(cases))
	for i, cs := range cases {
		if len(cs.Samples) == 0 {
			return domain.ComparatorAnalysis{}, fmt.Errorf("analyze: case k=%d has no samples", cs.CorrectChars)
		}
		summaries[i] = summarize(cs)
		ks[i] = float64(cs.CorrectChars)
		means[i] = summaries[i].Mean
	}

	r, rDefined := pearson(ks, means)
	inc, incDefined := increasePct(means)
	class := a.classify(r, rDefined, inc, incDefined)

	a.logger.Info("Analyzed comparator",
		"comparator", comparator,
		"cases", len(cases),
		"correlation", r,
		"increase_pct", inc,
		"classification", class,
	)

	return domain.ComparatorAnalysis{
		Comparator:         comparator,
		Cases:              summaries,
		Raw:                cases,
		Correlation:        r,
		CorrelationDefined: rDefined,
		IncreasePct:        inc,
		IncreasePctDefined: incDefined,
		Classification:     class,
		Thresholds:         a.config.Thresholds,
	}, nil
}

// summarize reduces one case's samples to summary statistics.
func summarize(cs domain.CaseSamples) domain.CaseSummary {
	xs := make([]float64, len(cs.Samples))
	for i, s := range cs.Samples {
		xs[i] = float64(s)
	}
	sample := stats.Sample{Xs: xs}
	min, max := sample.Bounds()

	return domain.CaseSummary{
		CorrectChars: cs.CorrectChars,
		Mean:         sample.Mean(),
		Median:       sample.Quantile(0.5),
		StdDev:       sample.StdDev(),
		Min:          min,
		Max:          max,
	}
}

// pearson computes the product-moment correlation between xs and ys. It is
// undefined when either variable has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	if len(xs) < 2 {
		return math.NaN(), false
	}
	meanX := stats.Sample{Xs: xs}.Mean()
	meanY := stats.Sample{Xs: ys}.Mean()

	var sxx, syy, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN(), false
	}
	return sxy / math.Sqrt(sxx*syy), true
}

// increasePct computes the percentage mean-time increase from the first case
// (k=0) to the last (k=L). Undefined when the k=0 mean is zero.
func increasePct(means []float64) (float64, bool) {
	first := means[0]
	last := means[len(means)-1]
	if first == 0 {
		return math.NaN(), false
	}
	return (last - first) / first * 100, true
}

// classify applies the configured policy. An undefined correlation means the
// per-case means had zero variance, i.e. perfectly flat timing, and is
// treated as zero correlation. An undefined increase leaves no basis for
// either verdict.
func (a *Analyzer) classify(r float64, rDefined bool, inc float64, incDefined bool) domain.Classification {
	rAbs := 0.0
	if rDefined {
		rAbs = math.Abs(r)
	}
	if !incDefined {
		return domain.ClassificationInconclusive
	}
	if rAbs >= a.config.Thresholds.High && inc >= a.config.MinIncreasePct {
		return domain.ClassificationVulnerable
	}
	if rAbs < a.config.Thresholds.Low && math.Abs(inc) < a.config.MaxStablePct {
		return domain.ClassificationSecure
	}
	return domain.ClassificationInconclusive
}
