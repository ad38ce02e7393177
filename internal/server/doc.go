// Package server implements the restaurants HTTP service.
//
// Owns:
//   - The restaurant record store (in-memory slice or in-memory SQLite)
//   - The five contract operations and their status/payload mapping
//   - Service wiring: contract binding, /healthz, /metrics, graceful shutdown
//
// Does not own:
//   - Route matching and request validation (internal/contract)
//   - Config loading (internal/shared)
//
// Invariants:
//   - Record ids are unique and assigned only by the store
//   - Every search-then-mutate on the store is atomic
//   - Missing ids surface as 404 {"message": "Restaurant with id '<id>' not found"}
package server
