// Package generate produces the secret and the per-case candidate family the
// harness measures against.
package generate

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/baditaflorin/go_timing_leak/internal/core/domain"
	"github.com/baditaflorin/go_timing_leak/internal/ports"
)

// Config holds configuration for the secret/case generator.
type Config struct {
	// Alphabet is the symbol set secrets and candidates are drawn from.
	Alphabet string
	// Seed seeds the generator's RNG. Zero selects a seed from entropy,
	// making the run non-reproducible.
	Seed uint64
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if len(c.Alphabet) < 2 {
		return errors.New("alphabet must contain at least 2 symbols to force a mismatch")
	}
	seen := make(map[byte]bool, len(c.Alphabet))
	for i := 0; i < len(c.Alphabet); i++ {
		if seen[c.Alphabet[i]] {
			return fmt.Errorf("alphabet contains duplicate symbol %q", c.Alphabet[i])
		}
		seen[c.Alphabet[i]] = true
	}
	return nil
}

// Generator draws secrets and builds candidate families with a controlled
// number of leading correct characters. The RNG is owned by the generator so
// a fixed seed reproduces the whole run.
type Generator struct {
	config Config
	seed   uint64
	rng    *rand.Rand
	logger ports.Logger
}

// New creates a generator. A zero seed is replaced with entropy; Seed reports
// the seed actually in effect either way.
func New(config Config, logger ports.Logger) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seed := config.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}

	return &Generator{
		config: config,
		seed:   seed,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger: logger,
	}, nil
}

// Seed returns the effective RNG seed, never zero. Recording it alongside the
// run output makes an entropy-seeded run reproducible after the fact.
func (g *Generator) Seed() uint64 { return g.seed }

// Secret draws a secret of the given length, each position an independent
// uniform sample from the alphabet.
func (g *Generator) Secret(length int) ([]byte, error) {
	if length <= 0 {
		return nil, errors.New("secret length must be greater than 0")
	}

	secret := make([]byte, length)
	for i := range secret {
		secret[i] = g.config.Alphabet[g.rng.IntN(len(g.config.Alphabet))]
	}

	g.logger.Debug("Generated secret", "length", length, "alphabet_size", len(g.config.Alphabet))
	return secret, nil
}

// Cases builds the candidate family for the secret: one test case per k in
// [0, len(secret)], ordered by k. The candidate for k copies the secret's
// first k characters, carries a forced mismatch at position k (for k < L),
// and fills the tail with fresh random symbols. k = L is the exact secret.
func (g *Generator) Cases(secret []byte) []domain.TestCase {
	length := len(secret)
	cases := make([]domain.TestCase, 0, length+1)

	for k := 0; k <= length; k++ {
		candidate := make([]byte, length)
		copy(candidate, secret[:k])

		if k < length {
			candidate[k] = g.differentSymbol(secret[k])
			for i := k + 1; i < length; i++ {
				candidate[i] = g.config.Alphabet[g.rng.IntN(len(g.config.Alphabet))]
			}
		}

		cases = append(cases, domain.TestCase{
			CorrectChars: k,
			Candidate:    candidate,
		})
	}

	g.logger.Debug("Generated test cases", "count", len(cases), "secret_length", length)
	return cases
}

// differentSymbol draws a uniform alphabet symbol that is not exclude.
// The alphabet has at least 2 symbols, so this terminates.
func (g *Generator) differentSymbol(exclude byte) byte {
	for {
		s := g.config.Alphabet[g.rng.IntN(len(g.config.Alphabet))]
		if s != exclude {
			return s
		}
	}
}
