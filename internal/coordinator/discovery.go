package coordinator

import (
	"context"
	"fmt"

	"github.com/quietmesh/rfcoord/internal/ramses"
	"github.com/quietmesh/rfcoord/internal/registry"
)

// EntitySource snapshots the gateway's live model in discovery order.
type EntitySource interface {
	Systems() []ramses.Entity
	Zones() []ramses.Entity
	DhwZones() []ramses.Entity
	Devices() []ramses.Entity
}

// Registrar is the registry surface discovery writes to.
type Registrar interface {
	CreateOrUpdate(ctx context.Context, rec *registry.Record) (stored *registry.Record, created, changed bool, err error)
}

// ReconcileResult reports what one discovery pass found.
type ReconcileResult struct {
	// NewEntities is true when at least one entity was seen for the
	// first time; the caller persists state in that case.
	NewEntities bool

	// InitializedFans lists fans that passed their one-time
	// initialisation during this pass and need parameter entities and a
	// bulk parameter read.
	InitializedFans []ramses.DeviceID
}

// Discovery diffs the gateway's live collections against the known-entity
// set and mirrors them into the registry. Known entities are append-only
// for the coordinator's lifetime.
//
// Discovery is not internally locked; the coordinator serialises all
// calls under its own mutex.
type Discovery struct {
	source    EntitySource
	registrar Registrar
	publisher Publisher
	logger    Logger

	// known holds every entity id ever seen, per category ordering
	// concerns are handled by processing categories parents-first.
	known map[ramses.DeviceID]bool

	// uninitializedFans holds fan devices waiting for their first inbound
	// message; initializedFans guards the one-time setup work.
	uninitializedFans map[ramses.DeviceID]bool
	initializedFans   map[ramses.DeviceID]bool
}

// NewDiscovery creates a reconciler over the given collaborators.
func NewDiscovery(source EntitySource, registrar Registrar, publisher Publisher, logger Logger) *Discovery {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Discovery{
		source:            source,
		registrar:         registrar,
		publisher:         publisher,
		logger:            logger,
		known:             make(map[ramses.DeviceID]bool),
		uninitializedFans: make(map[ramses.DeviceID]bool),
		initializedFans:   make(map[ramses.DeviceID]bool),
	}
}

// Reconcile runs one discovery pass. Categories are processed parents
// before children — systems and DHW zones ahead of plain devices — so a
// child's via-device always references an already-registered parent.
// Each category publishes at most one new-entities announcement per pass.
func (d *Discovery) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult

	categories := []struct {
		name     string
		entities []ramses.Entity
	}{
		{CategorySystems, d.source.Systems()},
		{CategoryDhw, d.source.DhwZones()},
		{CategoryZones, d.source.Zones()},
		{CategoryDevices, d.source.Devices()},
	}

	for _, cat := range categories {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		d.reconcileCategory(ctx, cat.name, cat.entities, &result)
	}

	return result, nil
}

func (d *Discovery) reconcileCategory(ctx context.Context, category string, entities []ramses.Entity, result *ReconcileResult) {
	var announcements []EntityAnnouncement

	for _, e := range entities {
		isNew := !d.known[e.ID]
		if isNew {
			d.known[e.ID] = true
			result.NewEntities = true
			announcements = append(announcements, announce(e))
		}

		// Descriptor writes short-circuit inside the registry: an
		// unchanged descriptor causes no write and no signal.
		_, _, changed, err := d.registrar.CreateOrUpdate(ctx, recordFor(e))
		if err != nil {
			d.logger.Error("registry write failed during discovery",
				"device_id", string(e.ID), "error", err)
			continue
		}
		if changed {
			if err := d.publisher.DeviceUpdated(e.ID); err != nil {
				d.logger.Warn("device updated signal failed",
					"device_id", string(e.ID), "error", err)
			}
		}

		if isNew && e.IsFan() {
			if e.Initialized && d.markFanInitialized(e.ID) {
				result.InitializedFans = append(result.InitializedFans, e.ID)
			} else if !e.Initialized {
				d.uninitializedFans[e.ID] = true
			}
		}
	}

	if len(announcements) > 0 {
		if err := d.publisher.NewEntities(category, announcements); err != nil {
			d.logger.Warn("new entities signal failed",
				"category", category, "error", err)
		}
	}
}

// FanSeen handles an inbound message from a device. It returns true
// exactly once per fan: on the first message from a fan that was still
// waiting for initialisation.
func (d *Discovery) FanSeen(device ramses.DeviceID) bool {
	if !d.uninitializedFans[device] {
		return false
	}
	delete(d.uninitializedFans, device)
	return d.markFanInitialized(device)
}

// markFanInitialized flips the one-time guard. Returns false when the fan
// was already initialised.
func (d *Discovery) markFanInitialized(device ramses.DeviceID) bool {
	if d.initializedFans[device] {
		return false
	}
	d.initializedFans[device] = true
	return true
}

// AnnounceFanParams publishes the per-parameter child entities for a
// newly initialised fan.
func (d *Discovery) AnnounceFanParams(device ramses.DeviceID) {
	announcement := EntityAnnouncement{
		DeviceID: string(device),
		Kind:     string(ramses.KindDevice),
		Name:     fmt.Sprintf("%s parameters", device),
		Params:   ParamCatalog,
	}
	if err := d.publisher.NewEntities(CategoryFanParams, []EntityAnnouncement{announcement}); err != nil {
		d.logger.Warn("fan params signal failed",
			"device_id", string(device), "error", err)
	}
}

// recordFor builds the registry descriptor for an entity.
func recordFor(e ramses.Entity) *registry.Record {
	rec := &registry.Record{
		DeviceID: e.ID,
		Kind:     e.Kind,
		Name:     entityName(e),
		Model:    e.Model,
	}
	if e.ParentID != nil {
		rec.ViaDevice = *e.ParentID
	}
	return rec
}

func entityName(e ramses.Entity) string {
	if e.Class != "" {
		return fmt.Sprintf("%s (%s)", e.ID, e.Class)
	}
	return string(e.ID)
}

func announce(e ramses.Entity) EntityAnnouncement {
	a := EntityAnnouncement{
		DeviceID: string(e.ID),
		Kind:     string(e.Kind),
		Name:     entityName(e),
		Model:    e.Model,
	}
	if e.ParentID != nil {
		a.ViaDevice = string(*e.ParentID)
	}
	return a
}
