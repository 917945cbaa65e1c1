// Package storage defines the analyzer record store contract.
//
// Implementations:
//   - redis: Redis with native per-key TTL (primary)
//   - memory: In-memory map with lazy eviction (fallback and testing)
package storage
