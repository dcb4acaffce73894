// Package repositories implements SQLite persistence for the scribe client.
//
// Key Implementations:
//   - [KeyValueRepository] : Small string tables keyed by name; backs the durable credential ("credentials") and preferences ("preferences")
//   - [RunRepository] : Local history of finished runs with soft deletes
//   - [RunRecorder] : Adapter that lets the streaming client record runs without depending on SQL
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// Each insert bumps its table's "<table>_sequence" counter in the same transaction.
package repositories
