package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// Useful when several independent analysis environments (e.g. CI pipelines
// for different repositories) share one Redis instance.
//
// Example usage:
//
//	// Pipeline-specific keys
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "ci:repo-a:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PackageKey generates a prefixed key for resolved package metadata.
func (k *ScopedKeyer) PackageKey(ecosystem, identifier string) string {
	return k.prefix + k.inner.PackageKey(ecosystem, identifier)
}

// RunKey generates a prefixed key for a persisted analysis run.
func (k *ScopedKeyer) RunKey(runID string) string {
	return k.prefix + k.inner.RunKey(runID)
}
