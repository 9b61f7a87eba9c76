// Package cache implements the two-tier generation cache: a bounded
// in-memory LRU in front of an unbounded persistent store. Lookups consult
// memory first, then the persistent tier, and report a miss only when both
// fail; persistent-tier errors are swallowed so the cache is never a hard
// dependency for forward progress.
package cache
