// Package storage persists the coordinator state blob.
//
// The blob bundles the gateway client's last known state (schema and
// packet cache) with the coordinator's own fan-to-remote bindings. It is
// stored as a single JSON document in SQLite and written on gateway
// events, on a periodic save tick, and once at shutdown.
package storage
