package cachestore

// Limits bounds the size of one named cache.
type Limits struct {
	// MaxEntries caps the number of entries. Zero means no cap.
	MaxEntries int

	// MaxBytes caps the total body bytes held. Zero means no cap.
	MaxBytes int64
}

// DefaultLimits returns the limits applied to caches when none are given:
// 1024 entries and 32 MiB of body data. Generous for an app shell plus a
// working set of API responses, small enough to stay inside storage quotas.
func DefaultLimits() Limits {
	return Limits{
		MaxEntries: 1024,
		MaxBytes:   32 << 20,
	}
}

// Unlimited returns limits that never refuse a write.
func Unlimited() Limits {
	return Limits{}
}

// Capped reports whether any bound is in effect.
func (l Limits) Capped() bool {
	return l.MaxEntries > 0 || l.MaxBytes > 0
}

// allows reports whether a cache currently holding entries/bytes may accept a
// write that adds addBytes and, unless replacing, one more entry.
func (l Limits) allows(entries int, bytes int64, addBytes int64, replacing bool) bool {
	if l.MaxEntries > 0 && !replacing && entries >= l.MaxEntries {
		return false
	}
	if l.MaxBytes > 0 && bytes+addBytes > l.MaxBytes {
		return false
	}
	return true
}
