package core

import (
	"context"
	"time"
)

// TimeProvider abstracts time operations so that staleness windows and
// transition timestamps are deterministic in tests.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc)
}
