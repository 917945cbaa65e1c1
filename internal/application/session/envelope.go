package session

import (
	"encoding/json"
	"fmt"

	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage"
)

// SchemaVersion is the current payload envelope version. Bump it whenever
// the envelope layout changes in a way old readers cannot handle.
const SchemaVersion = 1

// Precomputed holds artifacts computed once at session creation and embedded
// so later reads never recompute them.
type Precomputed struct {
	// Projection is a 2-D embedding of the session's continuous variables,
	// one [x, y] pair per input row.
	Projection [][]float64 `json:"projection,omitempty"`
}

// Envelope is the versioned wrapper around everything a session stores. Core
// stays raw: the store contract is opaque bytes in, opaque bytes out, and
// this package only cares about the frame around them.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Core          json.RawMessage `json:"core"`
	Precomputed   Precomputed     `json:"precomputed"`
}

// encodeEnvelope serializes an envelope for storage.
func encodeEnvelope(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w: %v", storage.ErrSerialization, err)
	}
	return data, nil
}

// decodeEnvelope deserializes stored bytes back into an envelope, rejecting
// unknown schema versions.
func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w: %v", storage.ErrSerialization, err)
	}
	if env.SchemaVersion != SchemaVersion {
		return Envelope{}, fmt.Errorf("decode envelope: unsupported schema version %d: %w",
			env.SchemaVersion, storage.ErrSerialization)
	}
	return env, nil
}
