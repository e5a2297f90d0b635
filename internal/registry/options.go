package registry

import "time"

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithEvictionInterval sets how often the janitor goroutine sweeps for idle
// peers.
func WithEvictionInterval(d time.Duration) Option {
	return func(r *Registry) { r.evictionInterval = d }
}

// WithIdleTimeout sets the quiet period after which a peer with an empty
// queue is eligible for eviction.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithBacklog sets each new peer's command-channel buffer size.
func WithBacklog(n int) Option {
	return func(r *Registry) { r.backlog = n }
}

// WithSwift sets the FLOWC->SWIFT grace period and SWIFT checkpoint period
// (in seconds) every new peer's queue is built with.
func WithSwift(graceSeconds, periodSeconds int) Option {
	return func(r *Registry) {
		r.swiftGrace = graceSeconds
		r.swiftPeriod = periodSeconds
	}
}

// WithNameResolver supplies the peer name resolution strategy, wrapped in a
// circuit breaker and an LRU cache before being wired into the registry.
// Without one, ResolveName always returns ErrNoResolver.
func WithNameResolver(nr NameResolver) Option {
	return func(r *Registry) { r.pendingResolver = nr }
}

// WithNameCacheSize bounds the peer-name LRU cache capacity.
func WithNameCacheSize(n int) Option {
	return func(r *Registry) { r.nameCacheSize = n }
}
