// Package store defines the persistence interfaces used by the application
// core: the durable job store, the per-stage content stores, and the
// persistent tier of the generation cache. Implementations live in
// internal/platform; the core depends only on these interfaces.
package store
