// Package history records fan parameter updates to InfluxDB.
//
// Writes are non-blocking and batched; a failed or disabled history
// backend never affects coordination. The coordinator calls
// WriteParamUpdate on every parameter event and otherwise ignores this
// package entirely.
package history
