package report

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_timing_leak/internal/core/domain"
)

func TestWriteRendersVerdicts(t *testing.T) {
	res := domain.NewRunResult(
		"run-1",
		domain.RunParams{SecretLength: 2, Alphabet: "ab01", Iterations: 100},
		domain.ComparatorAnalysis{
			Comparator: "early_exit",
			Cases: []domain.CaseSummary{
				{CorrectChars: 0, Mean: 100, StdDev: 3},
				{CorrectChars: 1, Mean: 150, StdDev: 3},
				{CorrectChars: 2, Mean: 200, StdDev: 3},
			},
			Correlation:        0.99,
			CorrelationDefined: true,
			IncreasePct:        100,
			IncreasePctDefined: true,
			Classification:     domain.ClassificationVulnerable,
		},
		domain.ComparatorAnalysis{
			Comparator: "constant_time",
			Cases: []domain.CaseSummary{
				{CorrectChars: 0, Mean: 200, StdDev: 1},
				{CorrectChars: 1, Mean: 200, StdDev: 1},
				{CorrectChars: 2, Mean: 200, StdDev: 1},
			},
			Correlation:        math.NaN(),
			CorrelationDefined: false,
			IncreasePct:        0,
			IncreasePctDefined: true,
			Classification:     domain.ClassificationSecure,
		},
		[]string{"clock resolution 1µs is too coarse for per-call timing"},
		time.Now(),
		time.Second,
	)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "VULNERABLE")
	assert.Contains(t, out, "SECURE")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "0.9900")
	assert.Contains(t, out, "N/A (zero variance)", "undefined correlation renders as N/A")
	assert.Contains(t, out, "too coarse")
	assert.Contains(t, out, "Fastest case (k=0)")
	assert.Contains(t, out, "Slowest case (k=2)")
}
