package ramses

// EntityKind classifies an entity surfaced by the gateway's live model.
// The kind is explicit rather than inferred from the shape of the record;
// parent relationships are carried in ParentID alone.
type EntityKind string

// EntityKind constants.
const (
	KindSystem EntityKind = "system"
	KindZone   EntityKind = "zone"
	KindDhw    EntityKind = "dhw"
	KindDevice EntityKind = "device"
)

// Device classes the coordinator treats specially. The class is reported by
// the gateway from device self-description; unknown classes are passed
// through untouched.
const (
	ClassFan        = "FAN"
	ClassRemote     = "REM"
	ClassController = "CTL"
	ClassGateway    = "HGI"
)

// Entity is one record in the gateway's live model: a system, a zone, a
// stored-hot-water zone or a plain device.
type Entity struct {
	ID   DeviceID
	Kind EntityKind

	// ParentID points at the logical parent (a zone's controller, a child
	// device's system). Nil for top-level entities.
	ParentID *DeviceID

	// Class is the two-to-three letter device class from self-description,
	// e.g. "FAN". Empty when the device has not yet described itself.
	Class string

	// Model is the human-readable product string, if known.
	Model string

	// Initialized is true once the gateway has decoded at least one inbound
	// message from the device, possibly replayed from the packet cache.
	Initialized bool
}

// IsFan reports whether the entity is a fan-capable device.
func (e Entity) IsFan() bool {
	return e.Kind == KindDevice && e.Class == ClassFan
}
