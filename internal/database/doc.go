// Package database provides SQLite storage for the stream service.
//
// It keeps:
//   - the history of finished stream sessions (metadata only, never pixels)
//   - the bcrypt hash of the optional API key
//   - a small key/value metadata table
//
// The database uses WAL mode so the session recorder and the read-only
// history endpoints do not block each other.
package database
