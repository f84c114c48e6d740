package warmup

import (
	"context"
	"runtime"
	"time"

	"github.com/baditaflorin/go_timing_leak/internal/ports"
)

// Config defines configuration for warming up comparators before measurement
type Config struct {
	// Number of unrecorded invocations per comparator
	Iterations int
	// Length of the scratch inputs used for warmup
	InputLength int
	// Whether to perform GC after warmup, so collection pressure built up
	// here does not land inside the measurement loop
	ForceGC bool
}

// DefaultConfig returns the default warmup configuration
func DefaultConfig() Config {
	return Config{
		Iterations:  1000,
		InputLength: 8,
		ForceGC:     true,
	}
}

// Manager handles comparator warmup operations. Warmup runs on a single
// goroutine: concurrent warmup would leave the caches and scheduler in
// exactly the contended state the measurement loop must avoid.
type Manager struct {
	logger      ports.Logger
	comparators []ports.Comparator
	config      Config
}

// NewManager creates a new warmup manager
func NewManager(logger ports.Logger, config Config) *Manager {
	return &Manager{
		logger: logger,
		config: config,
	}
}

// RegisterComparator adds a comparator to be warmed up
func (wm *Manager) RegisterComparator(cmp ports.Comparator) {
	wm.comparators = append(wm.comparators, cmp)
}

// WarmUp runs the warmup process for all registered comparators
func (wm *Manager) WarmUp(ctx context.Context) {
	if len(wm.comparators) == 0 {
		return
	}

	startTime := time.Now()
	wm.logger.Info("Starting comparator warmup",
		"comparators", len(wm.comparators),
		"iterations", wm.config.Iterations,
	)

	// Matching and mismatching inputs exercise both comparison paths
	equal := make([]byte, wm.config.InputLength)
	differing := make([]byte, wm.config.InputLength)
	for i := range differing {
		differing[i] = 0xff
	}

	for j := 0; j < wm.config.Iterations; j++ {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return
		default:
			// Continue
		}

		for _, cmp := range wm.comparators {
			if j%2 == 0 {
				_, _ = cmp.Compare(equal, equal)
			} else {
				_, _ = cmp.Compare(differing, equal)
			}
		}
	}

	// Force garbage collection if configured
	if wm.config.ForceGC {
		wm.logger.Debug("Forcing garbage collection after warmup")
		runtime.GC()
	}

	wm.logger.Info("Comparator warmup completed",
		"duration", time.Since(startTime),
	)
}
