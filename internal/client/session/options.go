package session

import (
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
)

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger. Defaults to logging.NopLogger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}
