package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/quietmesh/rfcoord/internal/ramses"
	"github.com/quietmesh/rfcoord/internal/registry"
	"github.com/quietmesh/rfcoord/internal/storage"
)

// mockGateway implements ramses.Gateway for coordinator tests.
type mockGateway struct {
	mu sync.Mutex

	ownID   ramses.DeviceID
	systems []ramses.Entity
	zones   []ramses.Entity
	dhw     []ramses.Entity
	devices []ramses.Entity

	sent     []*ramses.Command
	sentAt   []time.Time
	sendErrs []error // consumed one per send, nil entries mean success

	startErrs   []error // consumed one per Start call
	startSchema ramses.Schema
	startCache  map[string]string
	stopped     bool

	stateSchema  ramses.Schema
	statePackets map[string]string

	onEvent func(ramses.Event)
}

func newMockGateway(ownID ramses.DeviceID) *mockGateway {
	return &mockGateway{ownID: ownID, statePackets: map[string]string{}}
}

func (g *mockGateway) Start(_ context.Context, schema ramses.Schema, cached map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startSchema = schema
	g.startCache = cached
	if len(g.startErrs) > 0 {
		err := g.startErrs[0]
		g.startErrs = g.startErrs[1:]
		return err
	}
	return nil
}

func (g *mockGateway) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	return nil
}

func (g *mockGateway) State(context.Context) (ramses.Schema, map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateSchema, g.statePackets, nil
}

func (g *mockGateway) SendCommand(_ context.Context, cmd *ramses.Command) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, cmd)
	g.sentAt = append(g.sentAt, time.Now())
	if len(g.sendErrs) > 0 {
		err := g.sendErrs[0]
		g.sendErrs = g.sendErrs[1:]
		return err
	}
	return nil
}

func (g *mockGateway) SetOnEvent(fn func(ramses.Event)) { g.onEvent = fn }

func (g *mockGateway) Systems() []ramses.Entity  { return g.systems }
func (g *mockGateway) Zones() []ramses.Entity    { return g.zones }
func (g *mockGateway) DhwZones() []ramses.Entity { return g.dhw }
func (g *mockGateway) Devices() []ramses.Entity  { return g.devices }

func (g *mockGateway) OwnID() ramses.DeviceID { return g.ownID }

func (g *mockGateway) sentCommands() []*ramses.Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*ramses.Command, len(g.sent))
	copy(out, g.sent)
	return out
}

// mockPublisher records published signals.
type mockPublisher struct {
	mu          sync.Mutex
	newEntities []publishedEntities
	updated     []ramses.DeviceID
	params      []publishedParam
}

type publishedEntities struct {
	category string
	entities []EntityAnnouncement
}

type publishedParam struct {
	device  ramses.DeviceID
	paramID string
	value   string
}

func (p *mockPublisher) NewEntities(category string, entities []EntityAnnouncement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.newEntities = append(p.newEntities, publishedEntities{category, entities})
	return nil
}

func (p *mockPublisher) DeviceUpdated(device ramses.DeviceID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, device)
	return nil
}

func (p *mockPublisher) ParamUpdated(device ramses.DeviceID, paramID, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = append(p.params, publishedParam{device, paramID, value})
	return nil
}

// mockRegistry implements RegistryClient, recording create order.
type mockRegistry struct {
	mu          sync.Mutex
	records     map[ramses.DeviceID]*registry.Record
	byID        map[string]*registry.Record
	createOrder []ramses.DeviceID
	areaDevices map[string]ramses.DeviceID
	nextID      int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		records:     make(map[ramses.DeviceID]*registry.Record),
		byID:        make(map[string]*registry.Record),
		areaDevices: make(map[string]ramses.DeviceID),
	}
}

func (m *mockRegistry) CreateOrUpdate(_ context.Context, rec *registry.Record) (*registry.Record, bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[rec.DeviceID]
	if !ok {
		m.nextID++
		stored := rec.Copy()
		stored.ID = string(rune('a'+m.nextID-1)) + "-uuid"
		m.records[rec.DeviceID] = stored
		m.byID[stored.ID] = stored
		m.createOrder = append(m.createOrder, rec.DeviceID)
		return stored.Copy(), true, false, nil
	}
	if existing.DescriptorEquals(rec) {
		return existing.Copy(), false, false, nil
	}
	updated := rec.Copy()
	updated.ID = existing.ID
	updated.AreaID = existing.AreaID
	m.records[rec.DeviceID] = updated
	m.byID[updated.ID] = updated
	return updated.Copy(), false, true, nil
}

func (m *mockRegistry) Get(_ context.Context, id string) (*registry.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byID[id]; ok {
		return rec.Copy(), nil
	}
	return nil, registry.ErrNotFound
}

func (m *mockRegistry) FirstDeviceInArea(_ context.Context, areaID string) (ramses.DeviceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.areaDevices[areaID]; ok {
		return id, nil
	}
	return "", registry.ErrNotFound
}

// addRecord seeds a registry record with a fixed UUID.
func (m *mockRegistry) addRecord(id string, deviceID ramses.DeviceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := &registry.Record{ID: id, DeviceID: deviceID, Kind: ramses.KindDevice, Name: string(deviceID)}
	m.records[deviceID] = rec
	m.byID[id] = rec
}

// mockStore implements StateStore in memory.
type mockStore struct {
	mu        sync.Mutex
	blob      *storage.Blob
	loadErr   error
	saveCount int
}

func (s *mockStore) Load(context.Context) (*storage.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.blob == nil {
		return nil, storage.ErrNotFound
	}
	return s.blob, nil
}

func (s *mockStore) Save(_ context.Context, blob *storage.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = blob
	s.saveCount++
	return nil
}

func (s *mockStore) saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}
