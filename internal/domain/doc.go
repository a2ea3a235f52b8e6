// Package domain contains the core domain entities and value objects for
// parcelship.
//
// This package represents the innermost layer of the application. It has no
// dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Parcel]: One normalized shipment ready for transmission
//   - [Credentials]: GLS Label Service access credentials
//   - [Response]: Per-parcel outcome parsed from a submit call
//   - [UploadResult]: Aggregate outcome of one upload run
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
