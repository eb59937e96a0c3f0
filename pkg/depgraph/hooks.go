package depgraph

// BuilderHooks receives intern events from the builder. Implementations
// must be safe for concurrent use; the builder may be fed by parallel
// project traversals. The metrics package provides a Prometheus-backed
// implementation.
type BuilderHooks interface {
	// OnIntern is called after a fragment was interned. reused reports
	// whether an existing node was returned instead of a fresh insert.
	OnIntern(id Identifier, index int, reused bool)
}

// NopBuilderHooks is the default no-op implementation.
type NopBuilderHooks struct{}

// OnIntern does nothing.
func (NopBuilderHooks) OnIntern(Identifier, int, bool) {}

var _ BuilderHooks = NopBuilderHooks{}
