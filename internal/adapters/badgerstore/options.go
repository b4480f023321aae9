package badgerstore

import (
	"time"

	"github.com/okian/trainage/pkg/logger"
)

// Option configures a Store.
type Option func(*Store)

// WithSyncWrites makes every commit fsync before returning.
func WithSyncWrites(on bool) Option {
	return func(s *Store) {
		s.syncWrites = on
	}
}

// WithGCInterval sets how often value-log garbage collection runs.
// Zero disables it; in-memory stores never run it.
func WithGCInterval(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.gcInterval = d
		}
	}
}

// WithLogger routes badger's internal logging and GC reports to l.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.log = logger.OrNop(l)
	}
}
