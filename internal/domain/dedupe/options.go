package dedupe

// Option applies a configuration option to the deduper.
type Option func(*lruDeduper)

// WithMaxSize sets the maximum number of IDs to remember.
// If maxSize > 0 the least recently seen IDs are evicted beyond it.
// If maxSize <= 0 IDs are never evicted.
func WithMaxSize(maxSize int) Option {
	return func(d *lruDeduper) {
		d.maxSize = maxSize
	}
}
