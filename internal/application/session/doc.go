// Package session manages analyzer sessions on top of the storage manager.
//
// A session wraps a caller-supplied analysis document in a versioned payload
// envelope, serializes it, and hands the resulting bytes to the store. The
// store never inspects the bytes; this package is the only place that
// marshals or unmarshals them. Precomputed artifacts such as a 2-D projection
// ride along in the envelope so they survive storage without recomputation.
package session
