// Package coordinator reconciles the RF gateway's live device model with
// the host-side entity registry and drives the fan parameter protocol.
//
// The Coordinator owns the lifecycle: Setup merges the declared schema
// with the cached one, filters the persisted packet cache, and starts the
// gateway; Start runs the periodic discovery and state-save loops; Unload
// stops the gateway, cancels outstanding timers and flushes state exactly
// once.
//
// The parameter protocol is fire-and-wait over a transport with no
// delivery guarantee: a request marks a (device, parameter) pair pending,
// a matching inbound update resolves it, and a timeout clears the pending
// flag without retrying. All mutable coordinator state is guarded by a
// single mutex; discovery passes never overlap (a tick that lands during
// a running pass is skipped, not queued).
package coordinator
