// Package registry is rfcoord's host-side entity registry.
//
// Every system, zone, DHW zone, and device surfaced by the gateway gets a
// registry record keyed by a stable UUID, with the RF device id as the
// unique external identifier. Records carry the descriptor fields (name,
// model, via-device) used to detect identity changes between discovery
// passes, and an optional area assignment used for area-based target
// resolution.
//
// The Registry wraps a Repository with an in-memory cache; all public
// methods are safe for concurrent use.
package registry
