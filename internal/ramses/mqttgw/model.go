package mqttgw

import (
	"github.com/quietmesh/rfcoord/internal/ramses"
)

// model is the gateway's live entity view, built from the declared
// schema and grown from decoded traffic. Not safe for concurrent use;
// the gateway serialises access behind its own mutex.
type model struct {
	index map[ramses.DeviceID]*ramses.Entity
	order map[ramses.EntityKind][]ramses.DeviceID
}

func newModel() *model {
	return &model{
		index: make(map[ramses.DeviceID]*ramses.Entity),
		order: make(map[ramses.EntityKind][]ramses.DeviceID),
	}
}

// ensure returns the entity for id, creating it with the given kind if
// unseen. An existing entity keeps its kind; traffic never demotes a
// system to a plain device.
func (m *model) ensure(id ramses.DeviceID, kind ramses.EntityKind) *ramses.Entity {
	if e, ok := m.index[id]; ok {
		return e
	}
	e := &ramses.Entity{ID: id, Kind: kind}
	m.index[id] = e
	m.order[kind] = append(m.order[kind], id)
	return e
}

func (m *model) get(id ramses.DeviceID) (*ramses.Entity, bool) {
	e, ok := m.index[id]
	return e, ok
}

// snapshot copies the entities of one kind in discovery order.
func (m *model) snapshot(kind ramses.EntityKind) []ramses.Entity {
	ids := m.order[kind]
	out := make([]ramses.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.index[id])
	}
	return out
}

// seedFromSchema populates the model from a declared/merged schema:
// every non-reserved top-level key is a controller, its zones subtree
// contributes zone entities keyed by their sensor device, the system
// subtree's appliance control becomes a child device and a
// stored_hotwater subtree a DHW zone.
func (m *model) seedFromSchema(schema ramses.Schema) {
	for key, val := range schema {
		if key == ramses.SchemaKeyBlockList || key == ramses.SchemaKeyKnownList {
			continue
		}
		ctlID, err := ramses.ParseDeviceID(key)
		if err != nil {
			continue
		}
		ctl := m.ensure(ctlID, ramses.KindSystem)
		ctl.Class = ramses.ClassController

		sub, ok := toMap(val)
		if !ok {
			continue
		}
		m.seedSystem(ctlID, sub)
	}
}

func (m *model) seedSystem(ctlID ramses.DeviceID, sub map[string]any) {
	if sys, ok := toMap(sub["system"]); ok {
		if ac, ok := sys["appliance_control"].(string); ok {
			if id, err := ramses.ParseDeviceID(ac); err == nil {
				dev := m.ensure(id, ramses.KindDevice)
				dev.ParentID = ptr(ctlID)
			}
		}
	}
	if zones, ok := toMap(sub["zones"]); ok {
		for _, zv := range zones {
			zm, ok := toMap(zv)
			if !ok {
				continue
			}
			sensor, ok := zm["sensor"].(string)
			if !ok {
				continue
			}
			id, err := ramses.ParseDeviceID(sensor)
			if err != nil {
				continue
			}
			zone := m.ensure(id, ramses.KindZone)
			zone.ParentID = ptr(ctlID)
		}
	}
	if dhw, ok := toMap(sub["stored_hotwater"]); ok {
		if sensor, ok := dhw["sensor"].(string); ok {
			if id, err := ramses.ParseDeviceID(sensor); err == nil {
				z := m.ensure(id, ramses.KindDhw)
				z.ParentID = ptr(ctlID)
			}
		}
	}
}

func toMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case ramses.Schema:
		return val, true
	}
	return nil, false
}

func ptr(id ramses.DeviceID) *ramses.DeviceID { return &id }
