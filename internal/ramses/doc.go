// Package ramses holds the domain types shared between the coordinator and
// the RF gateway client: device identifiers, raw packet records, outbound
// commands, and the Gateway interface the coordinator drives.
//
// The package deliberately does not implement the RF transport or parse the
// wire protocol beyond fixed-width field access. Cached packets are treated
// as opaque text records; their address and code fields live at fixed
// character offsets and are sliced, never decoded.
//
// # Key Types
//
//   - DeviceID: canonical two-part hex identifier (e.g. "18:000730")
//   - Packet: a raw fixed-width packet line with field accessors
//   - Command: an outbound request with a src/dst/ancillary address triple
//   - Schema: the nested device/system model exchanged with the gateway
//   - Gateway: the long-lived gateway client consumed by the coordinator
//
// # Thread Safety
//
// DeviceID, Packet and Schema values are immutable once created. Command is
// not safe for concurrent mutation; build, fix up and send from one goroutine.
package ramses
