// Package ports defines the interfaces (ports) that connect the
// orchestration layer to infrastructure adapters.
//
// Ports are the boundaries between the application core and the outside
// world. They define what the orchestrator needs from external systems
// without specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Transport]: Executes remote GLS operations over a connected session
//   - [Ledger]: Persists upload outcomes for idempotency across runs
//   - [RowSource]: Yields already-validated input rows
//
// The orchestration layer (internal/app) depends only on these interfaces.
// Concrete implementations live in internal/gls, internal/ledger and
// internal/rowsource. This separation enables testing the orchestrator with
// in-memory fakes and swapping infrastructure without changing business
// logic.
package ports
