package export

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_timing_leak/internal/core/domain"
)

func sampleResult() domain.RunResult {
	vulnerable := domain.ComparatorAnalysis{
		Comparator: "early_exit",
		Cases: []domain.CaseSummary{
			{CorrectChars: 0, Mean: 100, Median: 99, StdDev: 4, Min: 90, Max: 120},
			{CorrectChars: 1, Mean: 150, Median: 148, StdDev: 5, Min: 130, Max: 180},
		},
		Raw: []domain.CaseSamples{
			{CorrectChars: 0, Samples: []int64{99, 101}},
			{CorrectChars: 1, Samples: []int64{149, 151}},
		},
		Correlation:        0.98,
		CorrelationDefined: true,
		IncreasePct:        50,
		IncreasePctDefined: true,
		Classification:     domain.ClassificationVulnerable,
		Thresholds:         domain.Thresholds{High: 0.7, Low: 0.3},
	}

	secure := domain.ComparatorAnalysis{
		Comparator: "constant_time",
		Cases: []domain.CaseSummary{
			{CorrectChars: 0, Mean: 200, Median: 200, StdDev: 1, Min: 199, Max: 201},
			{CorrectChars: 1, Mean: 200, Median: 200, StdDev: 1, Min: 199, Max: 201},
		},
		Raw: []domain.CaseSamples{
			{CorrectChars: 0, Samples: []int64{200, 200}},
			{CorrectChars: 1, Samples: []int64{200, 200}},
		},
		Correlation:        math.NaN(),
		CorrelationDefined: false,
		IncreasePct:        0,
		IncreasePctDefined: true,
		Classification:     domain.ClassificationSecure,
		Thresholds:         domain.Thresholds{High: 0.7, Low: 0.3},
	}

	return domain.NewRunResult(
		"run-123",
		domain.RunParams{
			SecretLength: 1,
			Alphabet:     "ab",
			Iterations:   2,
			Thresholds:   domain.Thresholds{High: 0.7, Low: 0.3},
			Seed:         42,
		},
		vulnerable,
		secure,
		[]string{"clock resolution warning"},
		time.Now(),
		3*time.Second,
	)
}

func TestWriteRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{}))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "run-123", decoded["run_id"])
	params := decoded["params"].(map[string]interface{})
	assert.Equal(t, float64(1), params["secret_length"])
	assert.Equal(t, "ab", params["alphabet"])
	assert.Equal(t, 0.7, params["high_threshold"])

	comparators := decoded["comparators"].([]interface{})
	require.Len(t, comparators, 2)

	vuln := comparators[0].(map[string]interface{})
	assert.Equal(t, "early_exit", vuln["name"])
	assert.Equal(t, "vulnerable", vuln["classification"])
	assert.Equal(t, 0.98, vuln["correlation"])
}

func TestUndefinedStatisticsEncodeAsNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{}))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	secure := decoded["comparators"].([]interface{})[1].(map[string]interface{})
	assert.Nil(t, secure["correlation"], "NaN correlation must serialize as null")
	assert.Equal(t, float64(0), secure["increase_pct"])
}

func TestRawSamplesOptIn(t *testing.T) {
	res := sampleResult()

	withoutRaw := NewDocument(res, Options{})
	for _, cmp := range withoutRaw.Comparators {
		for _, cs := range cmp.Cases {
			assert.Nil(t, cs.SamplesNs)
		}
	}

	withRaw := NewDocument(res, Options{IncludeRaw: true})
	assert.Equal(t, []int64{99, 101}, withRaw.Comparators[0].Cases[0].SamplesNs)
	assert.Equal(t, []int64{200, 200}, withRaw.Comparators[1].Cases[1].SamplesNs)
}

func TestWriteFile(t *testing.T) {
	path := t.TempDir() + "/result.json"
	require.NoError(t, WriteFile(path, sampleResult(), Options{Indent: true}))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{Indent: true}))
	assert.Contains(t, buf.String(), "\n  ")
}
