// Package http provides the REST API for analyzer sessions.
//
// Endpoints:
//   - GET    /health                 service and storage health
//   - GET    /metrics                Prometheus metrics
//   - POST   /api/v1/analyzers      create an analyzer session
//   - GET    /api/v1/analyzers      list live session ids
//   - GET    /api/v1/analyzers/:id  fetch a session
//   - DELETE /api/v1/analyzers/:id  remove a session
package http
