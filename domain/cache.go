package domain

// CacheStatus is the outcome of a cache operation. Cache failures are reported
// through CacheDegraded instead of an error so that no caller can mistake an
// unreachable cache for an authoritative answer.
type CacheStatus int

const (
	// CacheMiss means the key is absent. Only reads report it.
	CacheMiss CacheStatus = iota
	// CacheOK means a read hit or a write was applied.
	CacheOK
	// CacheDegraded means the cache could not be consulted or updated.
	CacheDegraded
)

func (s CacheStatus) String() string {
	switch s {
	case CacheOK:
		return "ok"
	case CacheMiss:
		return "miss"
	case CacheDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// CacheLookup is the result of a cache read.
type CacheLookup struct {
	Status CacheStatus
	Value  []byte
	// Err is the absorbed failure behind a degraded lookup, kept for logging.
	Err error
}

func (l CacheLookup) Hit() bool {
	return l.Status == CacheOK
}

func CacheHit(value []byte) CacheLookup {
	return CacheLookup{Status: CacheOK, Value: value}
}

func CacheMissed() CacheLookup {
	return CacheLookup{Status: CacheMiss}
}

func CacheFailed(err error) CacheLookup {
	return CacheLookup{Status: CacheDegraded, Err: err}
}
