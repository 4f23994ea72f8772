// Package database provides the SQLite connection layer for rfcoord.
//
// A single database file holds the persisted coordinator state blob and
// the entity registry. The package wraps database/sql with WAL-mode
// configuration, a single-writer connection pool, and embedded schema
// migrations applied at startup.
package database
