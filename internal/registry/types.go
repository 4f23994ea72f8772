package registry

import (
	"fmt"
	"time"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// Record is a registered entity: a system, zone, DHW zone, or device
// surfaced by the gateway and mirrored into the host registry.
type Record struct {
	// ID is the registry's own stable identifier (UUID).
	ID string

	// DeviceID is the RF protocol identifier. Unique across all records.
	DeviceID ramses.DeviceID

	// Kind classifies the record.
	Kind ramses.EntityKind

	// Descriptor fields. A change in any of these between discovery
	// passes means the entity's identity changed and it must be
	// re-announced.
	Name      string
	Model     string
	ViaDevice ramses.DeviceID

	// AreaID is the host-side area assignment, empty if unassigned.
	AreaID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the record's required fields.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if !r.DeviceID.Valid() {
		return fmt.Errorf("%w: device id %q is not a valid RF address", ErrInvalidRecord, r.DeviceID)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	return nil
}

// DescriptorEquals reports whether the identity-bearing fields match.
func (r *Record) DescriptorEquals(other *Record) bool {
	return r.Name == other.Name &&
		r.Model == other.Model &&
		r.ViaDevice == other.ViaDevice &&
		r.Kind == other.Kind
}

// Copy returns an independent copy of the record.
func (r *Record) Copy() *Record {
	c := *r
	return &c
}
