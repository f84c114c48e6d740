package generate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Close() error                 { return nil }

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "Valid", config: Config{Alphabet: alphanumeric}},
		{name: "Two symbols is enough", config: Config{Alphabet: "ab"}},
		{name: "Empty alphabet", config: Config{Alphabet: ""}, wantErr: true},
		{name: "Single symbol", config: Config{Alphabet: "a"}, wantErr: true},
		{name: "Duplicate symbols", config: Config{Alphabet: "abca"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSecret(t *testing.T) {
	g, err := New(Config{Alphabet: alphanumeric, Seed: 1}, nopLogger{})
	require.NoError(t, err)

	secret, err := g.Secret(8)
	require.NoError(t, err)
	require.Len(t, secret, 8)
	for _, c := range secret {
		assert.Contains(t, alphanumeric, string(c))
	}

	_, err = g.Secret(0)
	assert.Error(t, err)
	_, err = g.Secret(-3)
	assert.Error(t, err)
}

// matchLen counts the leading positions where candidate agrees with secret.
func matchLen(candidate, secret []byte) int {
	n := 0
	for i := range secret {
		if candidate[i] != secret[i] {
			break
		}
		n++
	}
	return n
}

func TestCasesExactPrefixMatch(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 99, 12345} {
		g, err := New(Config{Alphabet: alphanumeric, Seed: seed}, nopLogger{})
		require.NoError(t, err)

		secret, err := g.Secret(8)
		require.NoError(t, err)

		cases := g.Cases(secret)
		require.Len(t, cases, len(secret)+1)

		for i, tc := range cases {
			require.Equal(t, i, tc.CorrectChars, "cases must be ordered by k with no gaps")
			require.Len(t, tc.Candidate, len(secret))

			// Exactly k leading characters agree: the forced mismatch at
			// position k stops the match from extending past k.
			assert.Equal(t, tc.CorrectChars, matchLen(tc.Candidate, secret),
				"seed %d case k=%d: candidate %q vs secret %q", seed, i, tc.Candidate, secret)

			if tc.CorrectChars < len(secret) {
				assert.NotEqual(t, secret[tc.CorrectChars], tc.Candidate[tc.CorrectChars])
			} else {
				assert.True(t, bytes.Equal(secret, tc.Candidate), "k=L case must equal the secret")
			}

			for _, c := range tc.Candidate {
				assert.Contains(t, alphanumeric, string(c))
			}
		}
	}
}

func TestCasesTinyAlphabet(t *testing.T) {
	// With two symbols the forced mismatch has exactly one choice; the
	// generator must still terminate and satisfy the prefix property.
	g, err := New(Config{Alphabet: "01", Seed: 7}, nopLogger{})
	require.NoError(t, err)

	secret, err := g.Secret(16)
	require.NoError(t, err)

	for _, tc := range g.Cases(secret) {
		assert.Equal(t, tc.CorrectChars, matchLen(tc.Candidate, secret))
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	run := func() ([]byte, [][]byte) {
		g, err := New(Config{Alphabet: alphanumeric, Seed: 42}, nopLogger{})
		require.NoError(t, err)
		secret, err := g.Secret(8)
		require.NoError(t, err)
		var candidates [][]byte
		for _, tc := range g.Cases(secret) {
			candidates = append(candidates, tc.Candidate)
		}
		return secret, candidates
	}

	secretA, casesA := run()
	secretB, casesB := run()

	assert.Equal(t, secretA, secretB, "same seed must reproduce the secret")
	assert.Equal(t, casesA, casesB, "same seed must reproduce the candidate family")
}

func TestEffectiveSeed(t *testing.T) {
	// A configured seed is reported as-is.
	g, err := New(Config{Alphabet: alphanumeric, Seed: 42}, nopLogger{})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), g.Seed())

	// A zero seed resolves to an entropy seed, which is never zero, and
	// reseeding the generator with it replays the same secret.
	g, err = New(Config{Alphabet: alphanumeric, Seed: 0}, nopLogger{})
	require.NoError(t, err)
	require.NotZero(t, g.Seed())

	secret, err := g.Secret(8)
	require.NoError(t, err)

	replay, err := New(Config{Alphabet: alphanumeric, Seed: g.Seed()}, nopLogger{})
	require.NoError(t, err)
	replaySecret, err := replay.Secret(8)
	require.NoError(t, err)
	assert.Equal(t, secret, replaySecret)
}

func TestDifferentSeedsDiverge(t *testing.T) {
	gA, err := New(Config{Alphabet: alphanumeric, Seed: 1}, nopLogger{})
	require.NoError(t, err)
	gB, err := New(Config{Alphabet: alphanumeric, Seed: 2}, nopLogger{})
	require.NoError(t, err)

	secretA, err := gA.Secret(16)
	require.NoError(t, err)
	secretB, err := gB.Secret(16)
	require.NoError(t, err)

	assert.NotEqual(t, secretA, secretB)
}
