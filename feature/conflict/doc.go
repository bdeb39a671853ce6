// Package conflict exposes the conflict log over HTTP so operators can review
// divergences raised by manual and last-writer-wins policies and settle them.
//
// # HTTP Endpoints
//
//   - GET /conflicts : Lists conflicts (supports ?entity_type, ?resolved, ?limit, ?offset).
//   - GET /conflicts/:id : Returns one conflict.
//   - POST /conflicts/:id/resolve : Settles a conflict with keep_stored or apply_incoming.
package conflict
