package cache

import "time"

// Policy configures caching behavior.
type Policy struct {
	// TTL is applied to every stored entry. Zero disables caching.
	TTL time.Duration

	// MaxTTL clamps TTL when set.
	MaxTTL time.Duration
}

// DefaultPolicy keeps entries for 10 minutes, clamped to an hour.
func DefaultPolicy() Policy {
	return Policy{TTL: 10 * time.Minute, MaxTTL: time.Hour}
}

// Enabled reports whether anything will be stored.
func (p Policy) Enabled() bool {
	return p.TTL > 0
}

// EffectiveTTL returns TTL clamped to MaxTTL.
func (p Policy) EffectiveTTL() time.Duration {
	if p.MaxTTL > 0 && p.TTL > p.MaxTTL {
		return p.MaxTTL
	}
	return p.TTL
}
