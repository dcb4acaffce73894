// Package models defines domain entities and persistence interfaces for the scribe text-transformation client.
//
// The package contains two categories of types:
//
// 1. Value types describing an operation and its live state
//   - [Request] : What to send (operation [Kind], input text, optional [Language])
//   - [Run] : Snapshot of a single streaming call ([Status], accumulated output, error)
//   - [Session] : Derived authentication state ([Phase], [Identity])
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [RunRecord] : A finished run kept in local history
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
