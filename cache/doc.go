// Package cache stores upstream payloads for a bounded time.
//
// Two backends implement Cache: MemoryCache for a single process and
// RedisCache for replicas that share one cache. Loader adds read-through
// behavior on top of either; failed loads are never stored.
package cache
