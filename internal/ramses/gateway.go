package ramses

import "context"

// EventType identifies the coordinator-facing events a gateway delivers.
type EventType int

// Event types.
const (
	// EventDeviceSeen fires when the gateway decodes an inbound message
	// from a device, including messages replayed from the packet cache.
	EventDeviceSeen EventType = iota

	// EventParamUpdated fires when an inbound message updates a fan
	// parameter value.
	EventParamUpdated
)

// Event is one gateway notification. Events are delivered from the
// gateway's own goroutine; handlers must not assume any particular caller.
type Event struct {
	Type    EventType
	Device  DeviceID
	ParamID string // set for EventParamUpdated
	Value   string // set for EventParamUpdated, hex-encoded
}

// Gateway is the long-lived RF gateway client the coordinator drives.
// Implementations own the transport; the coordinator treats sends as
// fire-and-wait with no delivery guarantee.
//
// Start may be given packets to replay into the gateway's message history;
// State returns the gateway's current schema and packet log for persistence.
type Gateway interface {
	// Start brings the transport up with the given schema, seeding the
	// gateway with previously cached packets. An unusable schema is
	// reported as ErrInvalidSchema, a misconfigured interface as
	// ErrInterfaceUnavailable; any other failure is a retryable
	// transport error.
	Start(ctx context.Context, schema Schema, cachedPackets map[string]string) error

	// Stop tears the transport down. Safe to call more than once.
	Stop() error

	// State returns the gateway's current schema and its packet log keyed
	// by timestamp string. Either may be empty early in the lifetime.
	State(ctx context.Context) (Schema, map[string]string, error)

	// SendCommand puts a command on the wire. A nil return means the
	// command was transmitted, not that it was received.
	SendCommand(ctx context.Context, cmd *Command) error

	// SetOnEvent registers the single event handler. Must be called before
	// Start.
	SetOnEvent(fn func(Event))

	// Systems, Zones, DhwZones and Devices snapshot the live model in
	// discovery order.
	Systems() []Entity
	Zones() []Entity
	DhwZones() []Entity
	Devices() []Entity

	// OwnID returns the gateway's own device identifier, when known.
	OwnID() DeviceID
}
