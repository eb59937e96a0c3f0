// Package resolve turns package identifiers into resolved metadata records
// (declared licenses, authors, artifact locations, VCS info) exactly once
// per analysis run.
//
// The memoizing [Cache] is the concurrency gate: under N concurrent
// requests for the same identifier the underlying [Resolver] executes once,
// all callers block on a latched future until it completes, and the result
// (success or definitive failure) is retained for the cache lifetime.
//
// [CachingResolver] adds optional persistence across runs through the byte
// cache in the cache package; it sits below the memoizing layer:
//
//	inner := myecosystem.NewResolver(...)
//	persisted := resolve.NewCachingResolver(inner, fileCache)
//	memo := resolve.NewCache(persisted)
//
//	b := depgraph.NewBuilder[Node](handler, depgraph.WithResolve(memo.Warm))
package resolve
