// Package smartspeed periodically samples playback and nudges the rate
// based on content analysis.
package smartspeed

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sample is one observation of a tab's playback.
type Sample struct {
	Rate float64
	At   time.Time
}

// Analyzer inspects a sample and may suggest a different rate.
type Analyzer interface {
	// Analyze returns a suggested rate and whether an adjustment should
	// be applied.
	Analyze(sample Sample) (float64, bool)
}

// PassiveAnalyzer never suggests an adjustment. It stands in until a real
// content analyzer lands; the sampling loop and its wiring are final.
type PassiveAnalyzer struct{}

// Analyze implements Analyzer without ever adjusting.
func (PassiveAnalyzer) Analyze(Sample) (float64, bool) {
	return 0, false
}

// Controller is the subset of the playback driver the loop needs.
// Adjustments restore rather than set, so automatic changes are never
// recorded as user choices.
type Controller interface {
	Rate() float64
	Restore(rate float64) error
}

// Loop samples a tab's playback on a fixed interval while enabled.
type Loop struct {
	controller Controller
	analyzer   Analyzer
	interval   time.Duration
	enabled    func() bool
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a sampling loop. The enabled callback is consulted on
// every tick so settings changes take effect without a restart.
func NewLoop(controller Controller, analyzer Analyzer, interval time.Duration, enabled func() bool, logger *slog.Logger) *Loop {
	if analyzer == nil {
		analyzer = PassiveAnalyzer{}
	}
	return &Loop{
		controller: controller,
		analyzer:   analyzer,
		interval:   interval,
		enabled:    enabled,
		logger:     logger,
	}
}

// Start begins sampling in a background goroutine. Starting a running
// loop is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
}

// Running reports whether the loop is armed.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Stop halts sampling and waits for the loop to exit. Stopping a stopped
// loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) tick() {
	if l.enabled != nil && !l.enabled() {
		return
	}

	sample := Sample{Rate: l.controller.Rate(), At: time.Now()}
	suggested, adjust := l.analyzer.Analyze(sample)
	if !adjust || suggested == sample.Rate {
		return
	}

	if err := l.controller.Restore(suggested); err != nil {
		if l.logger != nil {
			l.logger.Warn("smart speed adjustment failed", "error", err)
		}
	}
}
