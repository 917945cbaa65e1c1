// Package store owns the active storage backend for analyzer records.
//
// The Manager fronts two storage.Backend variants: Redis as the primary and
// an in-process map as the fallback. It probes Redis at startup and on a
// fixed interval, routes all record traffic to whichever backend is active,
// and fails over to memory the moment a Redis call reports unavailability.
// Records written to one backend are never migrated to the other; a record
// created while degraded stays in memory even after Redis recovers.
package store
