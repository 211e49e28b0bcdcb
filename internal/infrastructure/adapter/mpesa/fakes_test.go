package mpesa

import (
	"context"
	"sync"
	"time"

	"github.com/mwangikim/nyumbapay/internal/domain/port/core"
)

// fixedTimeProvider serves a settable instant, letting tests move time
// across the token slack window without sleeping
type fixedTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedTimeProvider(start time.Time) *fixedTimeProvider {
	return &fixedTimeProvider{now: start}
}

func (p *fixedTimeProvider) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

func (p *fixedTimeProvider) Since(t time.Time) time.Duration {
	return p.Now().Sub(t)
}

func (p *fixedTimeProvider) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func (p *fixedTimeProvider) Advance(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = p.now.Add(d)
}

type nopLogger struct{}

func (nopLogger) SetLevel(core.LogLevel)       {}
func (nopLogger) Debug(string, map[string]any) {}
func (nopLogger) Info(string, map[string]any)  {}
func (nopLogger) Warn(string, map[string]any)  {}
func (nopLogger) Error(string, map[string]any) {}
func (nopLogger) Flush() error                 { return nil }

// recordingTokenSource hands out a fixed token and remembers invalidations
type recordingTokenSource struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (s *recordingTokenSource) Token(_ context.Context) (string, error) {
	return s.token, nil
}

func (s *recordingTokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
}

func (s *recordingTokenSource) invalidations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}
