// Package export serializes a run's result artifact to JSON for downstream
// tooling (plotting, archival). Summary statistics are carried exactly; raw
// samples are included only on request because they dominate the payload.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/baditaflorin/go_timing_leak/internal/core/domain"
)

// Options controls the serialized form.
type Options struct {
	// IncludeRaw adds every per-invocation sample to each case.
	IncludeRaw bool
	// Indent pretty-prints the output.
	Indent bool
}

// Document is the serializable form of a domain.RunResult. Undefined
// statistics (NaN) are encoded as null, which encoding/json cannot do for a
// plain float64.
type Document struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	ElapsedNs int64          `json:"elapsed_ns"`
	Params    ParamsDocument `json:"params"`
	// Comparators holds the vulnerable-by-design comparator first, the
	// constant-time one second.
	Comparators []ComparatorDocument `json:"comparators"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// ParamsDocument mirrors domain.RunParams.
type ParamsDocument struct {
	SecretLength     int     `json:"secret_length"`
	Alphabet         string  `json:"alphabet"`
	Iterations       int     `json:"iterations"`
	WarmupIterations int     `json:"warmup_iterations"`
	HighThreshold    float64 `json:"high_threshold"`
	LowThreshold     float64 `json:"low_threshold"`
	MinIncreasePct   float64 `json:"min_increase_pct"`
	MaxStablePct     float64 `json:"max_stable_pct"`
	Seed             uint64  `json:"seed"`
}

// ComparatorDocument mirrors domain.ComparatorAnalysis.
type ComparatorDocument struct {
	Name           string         `json:"name"`
	Classification string         `json:"classification"`
	Correlation    *float64       `json:"correlation"`
	IncreasePct    *float64       `json:"increase_pct"`
	HighThreshold  float64        `json:"high_threshold"`
	LowThreshold   float64        `json:"low_threshold"`
	Cases          []CaseDocument `json:"cases"`
}

// CaseDocument mirrors domain.CaseSummary plus optional raw samples.
type CaseDocument struct {
	CorrectChars int     `json:"correct_chars"`
	MeanNs       float64 `json:"mean_ns"`
	MedianNs     float64 `json:"median_ns"`
	StdDevNs     float64 `json:"std_dev_ns"`
	MinNs        float64 `json:"min_ns"`
	MaxNs        float64 `json:"max_ns"`
	SamplesNs    []int64 `json:"samples_ns,omitempty"`
}

// NewDocument converts a run result into its serializable form.
func NewDocument(res domain.RunResult, opts Options) Document {
	return Document{
		RunID:     res.RunID,
		StartedAt: res.StartedAt,
		ElapsedNs: res.Elapsed.Nanoseconds(),
		Params: ParamsDocument{
			SecretLength:     res.Params.SecretLength,
			Alphabet:         res.Params.Alphabet,
			Iterations:       res.Params.Iterations,
			WarmupIterations: res.Params.WarmupIterations,
			HighThreshold:    res.Params.Thresholds.High,
			LowThreshold:     res.Params.Thresholds.Low,
			MinIncreasePct:   res.Params.MinIncreasePct,
			MaxStablePct:     res.Params.MaxStablePct,
			Seed:             res.Params.Seed,
		},
		Comparators: []ComparatorDocument{
			newComparatorDocument(res.Vulnerable, opts),
			newComparatorDocument(res.Secure, opts),
		},
		Warnings: res.Warnings,
	}
}

func newComparatorDocument(a domain.ComparatorAnalysis, opts Options) ComparatorDocument {
	doc := ComparatorDocument{
		Name:           a.Comparator,
		Classification: string(a.Classification),
		Correlation:    nullableFloat(a.Correlation, a.CorrelationDefined),
		IncreasePct:    nullableFloat(a.IncreasePct, a.IncreasePctDefined),
		HighThreshold:  a.Thresholds.High,
		LowThreshold:   a.Thresholds.Low,
		Cases:          make([]CaseDocument, len(a.Cases)),
	}

	for i, cs := range a.Cases {
		doc.Cases[i] = CaseDocument{
			CorrectChars: cs.CorrectChars,
			MeanNs:       cs.Mean,
			MedianNs:     cs.Median,
			StdDevNs:     cs.StdDev,
			MinNs:        cs.Min,
			MaxNs:        cs.Max,
		}
		if opts.IncludeRaw && i < len(a.Raw) {
			doc.Cases[i].SamplesNs = a.Raw[i].Samples
		}
	}

	return doc
}

// nullableFloat maps an undefined or non-finite statistic to null.
func nullableFloat(v float64, defined bool) *float64 {
	if !defined || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Write serializes the result to w.
func Write(w io.Writer, res domain.RunResult, opts Options) error {
	enc := json.NewEncoder(w)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(NewDocument(res, opts)); err != nil {
		return fmt.Errorf("export: encode run %s: %w", res.RunID, err)
	}
	return nil
}

// WriteFile serializes the result to a file.
func WriteFile(path string, res domain.RunResult, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	if err := Write(f, res, opts); err != nil {
		return err
	}
	return f.Close()
}
