package cache

import "context"

// LoadFunc produces the value for a key on a miss.
type LoadFunc func(ctx context.Context) ([]byte, error)

// Loader adds read-through caching to a Cache.
type Loader struct {
	cache  Cache
	policy Policy
}

// NewLoader creates a read-through loader. A nil cache or a disabled
// policy turns Get into a plain call to load.
func NewLoader(c Cache, policy Policy) *Loader {
	return &Loader{cache: c, policy: policy}
}

// Enabled reports whether values are stored.
func (l *Loader) Enabled() bool {
	return l != nil && l.cache != nil && l.policy.Enabled()
}

// Get returns the cached value for key or calls load. Errors from load are
// returned as-is and never cached; a failing Set is ignored.
func (l *Loader) Get(ctx context.Context, key string, load LoadFunc) (value []byte, hit bool, err error) {
	if !l.Enabled() {
		value, err = load(ctx)
		return value, false, err
	}

	if cached, ok := l.cache.Get(ctx, key); ok {
		return cached, true, nil
	}

	value, err = load(ctx)
	if err != nil {
		return value, false, err
	}
	_ = l.cache.Set(ctx, key, value, l.policy.EffectiveTTL())
	return value, false, nil
}
