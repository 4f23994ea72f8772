package coordinator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/quietmesh/rfcoord/internal/ramses"
	"github.com/quietmesh/rfcoord/internal/registry"
)

// Directory is the registry surface the resolver needs: mapping host-side
// identifiers back to protocol device ids.
type Directory interface {
	// Get retrieves a registry record by its registry UUID.
	Get(ctx context.Context, id string) (*registry.Record, error)

	// FirstDeviceInArea returns the protocol id of the first record in
	// the area that carries one.
	FirstDeviceInArea(ctx context.Context, areaID string) (ramses.DeviceID, error)
}

// entityIDPattern matches a protocol device id embedded in an entity id,
// e.g. "fan.32_153289" or "number.32_153289_param_4e".
var entityIDPattern = regexp.MustCompile(`([0-9A-Fa-f]{2})[_:]([0-9A-Fa-f]{6})`)

// Resolver turns a heterogeneous service-call target into one canonical
// protocol device id.
type Resolver struct {
	dir    Directory
	logger Logger
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir Directory, logger Logger) *Resolver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve resolves a call target to a protocol device id. Priority, first
// match wins:
//
//  1. device_id already in protocol format (contains a colon)
//  2. device_id as a registry UUID
//  3. device as a registry UUID
//  4. target.entity_id, target.device_id, target.area_id in that order
//
// A list with more than one element is logged and reduced to its first
// element. On success via a non-canonical field the canonical id is
// written back into data.DeviceID so downstream callers see a normalised
// value. A device_id that looks like a protocol id but fails to parse is
// a caller mistake and fails with ErrValidation rather than falling
// through to the lower-priority fields. Returns ErrTargetNotFound when
// nothing resolves.
func (r *Resolver) Resolve(ctx context.Context, data *CallTarget) (ramses.DeviceID, error) {
	id, ok, err := r.fromDeviceIDField(ctx, data.DeviceID, "device_id")
	if err != nil {
		return "", err
	}
	if ok {
		r.writeBack(data, id)
		return id, nil
	}
	if id, ok := r.fromRegistryID(ctx, r.first(data.Device, "device"), "device"); ok {
		r.writeBack(data, id)
		return id, nil
	}
	if data.Target != nil {
		if id, ok := r.fromEntityID(ctx, r.first(data.Target.EntityID, "target.entity_id")); ok {
			r.writeBack(data, id)
			return id, nil
		}
		if id, ok := r.fromRegistryID(ctx, r.first(data.Target.DeviceID, "target.device_id"), "target.device_id"); ok {
			r.writeBack(data, id)
			return id, nil
		}
		if id, ok := r.fromAreaID(ctx, r.first(data.Target.AreaID, "target.area_id")); ok {
			r.writeBack(data, id)
			return id, nil
		}
	}
	return "", ErrTargetNotFound
}

// fromDeviceIDField handles the device_id field, which may carry either a
// protocol id or a registry UUID. A colon marks the value as a protocol
// id; one that then fails to parse is an error, not a miss.
func (r *Resolver) fromDeviceIDField(ctx context.Context, list StringList, field string) (ramses.DeviceID, bool, error) {
	raw := r.first(list, field)
	if raw == "" {
		return "", false, nil
	}
	if strings.Contains(raw, ":") {
		id, err := ramses.ParseDeviceID(raw)
		if err != nil {
			return "", false, fmt.Errorf("%w: %s %q: %w", ErrValidation, field, raw, err)
		}
		return id, true, nil
	}
	id, ok := r.fromRegistryID(ctx, raw, field)
	return id, ok, nil
}

func (r *Resolver) fromRegistryID(ctx context.Context, raw, field string) (ramses.DeviceID, bool) {
	if raw == "" {
		return "", false
	}
	rec, err := r.dir.Get(ctx, raw)
	if err != nil {
		r.logger.Debug("registry lookup failed during target resolution",
			"field", field, "value", raw, "error", err)
		return "", false
	}
	if !rec.DeviceID.Valid() {
		return "", false
	}
	return rec.DeviceID, true
}

// fromEntityID extracts the protocol id embedded in an entity id, falling
// back to a registry lookup for opaque entity ids.
func (r *Resolver) fromEntityID(ctx context.Context, raw string) (ramses.DeviceID, bool) {
	if raw == "" {
		return "", false
	}
	if m := entityIDPattern.FindStringSubmatch(raw); m != nil {
		id, err := ramses.ParseDeviceID(fmt.Sprintf("%s:%s", m[1], m[2]))
		if err == nil {
			return id, true
		}
	}
	// Opaque entity id: strip any domain prefix and try the registry.
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[i+1:]
	}
	return r.fromRegistryID(ctx, raw, "target.entity_id")
}

func (r *Resolver) fromAreaID(ctx context.Context, raw string) (ramses.DeviceID, bool) {
	if raw == "" {
		return "", false
	}
	id, err := r.dir.FirstDeviceInArea(ctx, raw)
	if err != nil {
		r.logger.Debug("area lookup failed during target resolution",
			"area_id", raw, "error", err)
		return "", false
	}
	return id, true
}

// first reduces a possibly multi-element field to its first element,
// warning when elements are discarded. Multi-element targets are a caller
// mistake but never an error.
func (r *Resolver) first(list StringList, field string) string {
	if len(list) > 1 {
		r.logger.Warn("service call target has multiple elements, using first",
			"field", field, "count", len(list))
	}
	return list.First()
}

// writeBack normalises the input so downstream consumers always find the
// canonical id under device_id.
func (r *Resolver) writeBack(data *CallTarget, id ramses.DeviceID) {
	data.DeviceID = StringList{string(id)}
}
