package store

import "time"

// HealthSnapshot is a point-in-time view of the manager's state for the
// health endpoint. Reading it never triggers a probe; the timestamps come
// from the background cycle.
type HealthSnapshot struct {
	ActiveBackend string    `json:"active_backend"`
	Connected     bool      `json:"connected"`
	LastProbeAt   time.Time `json:"last_probe_at"`
}

// Health returns the current backend identity and connectivity without
// performing any network call.
func (m *Manager) Health() HealthSnapshot {
	m.mu.RLock()
	state := m.state
	lastProbe := m.lastProbe
	m.mu.RUnlock()

	active := m.fallback.Name()
	if state == StateConnected {
		active = m.remote.Name()
	}

	return HealthSnapshot{
		ActiveBackend: active,
		Connected:     state == StateConnected,
		LastProbeAt:   lastProbe,
	}
}
