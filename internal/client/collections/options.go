package collections

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
)

const (
	DefaultRemoteTimeout = 10 * time.Second

	defaultReattachBase = 500 * time.Millisecond
	defaultReattachMax  = 30 * time.Second
)

// WriteGuard authorises a write to collection. A non-nil error aborts the
// write before any layer is touched.
type WriteGuard func(ctx context.Context, collection string) error

type Option func(*Synchronizer)

func WithLogger(l logging.Logger) Option {
	return func(s *Synchronizer) { s.log = l }
}

// WithClock overrides the time source used for timestamps and local ids.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// WithRemoteTimeout bounds every remote call. Non-positive values keep the
// default of 10s.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithWriteGuard(g WriteGuard) Option {
	return func(s *Synchronizer) { s.guard = g }
}

// WithReattachBackoff sets the exponential backoff used to re-open a lost
// subscription.
func WithReattachBackoff(base, max time.Duration) Option {
	return func(s *Synchronizer) {
		if base > 0 {
			s.reattachBase = base
		}
		if max > 0 {
			s.reattachMax = max
		}
	}
}
