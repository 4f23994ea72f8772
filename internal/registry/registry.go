package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry wraps a Repository with an in-memory cache keyed by RF device
// id. The cache is populated by RefreshCache on startup and kept in sync
// by the mutating operations. All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[ramses.DeviceID]*Record
	cacheMu sync.RWMutex
	logger  Logger
}

// New creates a registry over the given repository.
func New(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[ramses.DeviceID]*Record),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all records from the repository into the cache.
// Call once on startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	records, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[ramses.DeviceID]*Record, len(records))
	for i := range records {
		rec := records[i]
		r.cache[rec.DeviceID] = rec.Copy()
	}

	r.logger.Info("registry cache refreshed", "count", len(records))
	return nil
}

// Get retrieves a record by its registry UUID.
func (r *Registry) Get(ctx context.Context, id string) (*Record, error) {
	r.cacheMu.RLock()
	for _, rec := range r.cache {
		if rec.ID == id {
			c := rec.Copy()
			r.cacheMu.RUnlock()
			return c, nil
		}
	}
	r.cacheMu.RUnlock()

	return r.repo.GetByID(ctx, id)
}

// GetByDeviceID retrieves a record by its RF device id.
func (r *Registry) GetByDeviceID(ctx context.Context, deviceID ramses.DeviceID) (*Record, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[deviceID]
	r.cacheMu.RUnlock()

	if ok {
		return cached.Copy(), nil
	}

	rec, err := r.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[deviceID] = rec.Copy()
	r.cacheMu.Unlock()

	return rec, nil
}

// List retrieves all records.
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	r.cacheMu.RLock()
	if len(r.cache) > 0 {
		records := make([]Record, 0, len(r.cache))
		for _, rec := range r.cache {
			records = append(records, *rec.Copy())
		}
		r.cacheMu.RUnlock()
		return records, nil
	}
	r.cacheMu.RUnlock()

	return r.repo.List(ctx)
}

// CreateOrUpdate upserts a record keyed by RF device id.
//
// A record is created when no record exists for rec.DeviceID. An existing
// record is updated only when a descriptor field changed; the registry
// UUID and area assignment are always preserved across updates.
//
// It returns the stored record and whether it was newly created or had a
// descriptor change.
func (r *Registry) CreateOrUpdate(ctx context.Context, rec *Record) (stored *Record, created, changed bool, err error) {
	existing, err := r.GetByDeviceID(ctx, rec.DeviceID)
	switch {
	case errors.Is(err, ErrNotFound):
		fresh := rec.Copy()
		fresh.ID = uuid.New().String()
		if err := r.repo.Create(ctx, fresh); err != nil {
			return nil, false, false, fmt.Errorf("creating record for %s: %w", rec.DeviceID, err)
		}

		r.cacheMu.Lock()
		r.cache[fresh.DeviceID] = fresh.Copy()
		r.cacheMu.Unlock()

		r.logger.Info("registry record created",
			"device_id", string(fresh.DeviceID),
			"kind", string(fresh.Kind),
			"name", fresh.Name,
		)
		return fresh, true, false, nil

	case err != nil:
		return nil, false, false, fmt.Errorf("looking up %s: %w", rec.DeviceID, err)
	}

	if existing.DescriptorEquals(rec) {
		return existing, false, false, nil
	}

	updated := rec.Copy()
	updated.ID = existing.ID
	updated.AreaID = existing.AreaID
	updated.CreatedAt = existing.CreatedAt
	if err := r.repo.Update(ctx, updated); err != nil {
		return nil, false, false, fmt.Errorf("updating record for %s: %w", rec.DeviceID, err)
	}

	r.cacheMu.Lock()
	r.cache[updated.DeviceID] = updated.Copy()
	r.cacheMu.Unlock()

	r.logger.Info("registry record descriptor changed",
		"device_id", string(updated.DeviceID),
		"name", updated.Name,
	)
	return updated, false, true, nil
}

// AssignArea sets the area for the record with the given device id.
func (r *Registry) AssignArea(ctx context.Context, deviceID ramses.DeviceID, areaID string) error {
	rec, err := r.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}

	rec.AreaID = areaID
	if err := r.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("assigning area for %s: %w", deviceID, err)
	}

	r.cacheMu.Lock()
	r.cache[deviceID] = rec.Copy()
	r.cacheMu.Unlock()

	return nil
}

// FirstDeviceInArea returns the RF device id of the first record assigned
// to the area, in repository name order. Returns ErrNotFound when the
// area has no records with a valid RF address.
func (r *Registry) FirstDeviceInArea(ctx context.Context, areaID string) (ramses.DeviceID, error) {
	records, err := r.repo.ListByArea(ctx, areaID)
	if err != nil {
		return "", fmt.Errorf("listing area %s: %w", areaID, err)
	}

	for _, rec := range records {
		if rec.DeviceID.Valid() {
			return rec.DeviceID, nil
		}
	}
	return "", fmt.Errorf("%w: no addressable device in area %s", ErrNotFound, areaID)
}
