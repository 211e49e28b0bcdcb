package time

import (
	"context"
	gotime "time"

	"github.com/mwangikim/nyumbapay/internal/domain/port/core"
)

// RealTimeProvider implements TimeProvider using the system clock
type RealTimeProvider struct{}

// NewRealTimeProvider creates a new time provider backed by the system clock
func NewRealTimeProvider() core.TimeProvider {
	return &RealTimeProvider{}
}

// Now returns the current time
func (p *RealTimeProvider) Now() gotime.Time {
	return gotime.Now()
}

// Since returns the elapsed time since t
func (p *RealTimeProvider) Since(t gotime.Time) gotime.Duration {
	return gotime.Since(t)
}

// WithTimeout creates a context with the given timeout
func (p *RealTimeProvider) WithTimeout(ctx context.Context, timeout gotime.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}
