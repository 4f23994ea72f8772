package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	records map[string]*Record // keyed by registry UUID
}

func newMockRepository() *mockRepository {
	return &mockRepository{records: make(map[string]*Record)}
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Record, error) {
	if rec, ok := m.records[id]; ok {
		return rec.Copy(), nil
	}
	return nil, ErrNotFound
}

func (m *mockRepository) GetByDeviceID(_ context.Context, deviceID ramses.DeviceID) (*Record, error) {
	for _, rec := range m.records {
		if rec.DeviceID == deviceID {
			return rec.Copy(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) List(_ context.Context) ([]Record, error) {
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec.Copy())
	}
	return out, nil
}

func (m *mockRepository) ListByArea(_ context.Context, areaID string) ([]Record, error) {
	var out []Record
	for _, rec := range m.records {
		if rec.AreaID == areaID {
			out = append(out, *rec.Copy())
		}
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, rec *Record) error {
	if _, ok := m.records[rec.ID]; ok {
		return ErrExists
	}
	m.records[rec.ID] = rec.Copy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, rec *Record) error {
	if _, ok := m.records[rec.ID]; !ok {
		return ErrNotFound
	}
	m.records[rec.ID] = rec.Copy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func fanRecord() *Record {
	return &Record{
		DeviceID:  "32:153289",
		Kind:      ramses.KindDevice,
		Name:      "32:153289 (FAN)",
		Model:     "FAN",
		ViaDevice: "18:000730",
	}
}

func TestCreateOrUpdateCreates(t *testing.T) {
	reg := New(newMockRepository())
	ctx := context.Background()

	stored, created, changed, err := reg.CreateOrUpdate(ctx, fanRecord())
	if err != nil {
		t.Fatalf("CreateOrUpdate() error = %v", err)
	}
	if !created || changed {
		t.Errorf("created = %v, changed = %v, want created only", created, changed)
	}
	if stored.ID == "" {
		t.Error("stored record has empty UUID")
	}

	got, err := reg.GetByDeviceID(ctx, "32:153289")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if got.ID != stored.ID {
		t.Errorf("lookup id = %q, want %q", got.ID, stored.ID)
	}
}

func TestCreateOrUpdateUnchangedDescriptor(t *testing.T) {
	reg := New(newMockRepository())
	ctx := context.Background()

	first, _, _, err := reg.CreateOrUpdate(ctx, fanRecord())
	if err != nil {
		t.Fatalf("CreateOrUpdate() error = %v", err)
	}

	second, created, changed, err := reg.CreateOrUpdate(ctx, fanRecord())
	if err != nil {
		t.Fatalf("CreateOrUpdate() second error = %v", err)
	}
	if created || changed {
		t.Errorf("created = %v, changed = %v, want neither for identical descriptor", created, changed)
	}
	if second.ID != first.ID {
		t.Errorf("UUID changed across identical upserts: %q != %q", second.ID, first.ID)
	}
}

func TestCreateOrUpdateDescriptorChange(t *testing.T) {
	reg := New(newMockRepository())
	ctx := context.Background()

	first, _, _, err := reg.CreateOrUpdate(ctx, fanRecord())
	if err != nil {
		t.Fatalf("CreateOrUpdate() error = %v", err)
	}
	if err := reg.AssignArea(ctx, first.DeviceID, "living-room"); err != nil {
		t.Fatalf("AssignArea() error = %v", err)
	}

	renamed := fanRecord()
	renamed.Name = "Bathroom fan"

	updated, created, changed, err := reg.CreateOrUpdate(ctx, renamed)
	if err != nil {
		t.Fatalf("CreateOrUpdate() error = %v", err)
	}
	if created || !changed {
		t.Errorf("created = %v, changed = %v, want changed only", created, changed)
	}
	if updated.ID != first.ID {
		t.Errorf("UUID not preserved across descriptor change: %q != %q", updated.ID, first.ID)
	}
	if updated.AreaID != "living-room" {
		t.Errorf("AreaID = %q, want area preserved across descriptor change", updated.AreaID)
	}
}

func TestGetByDeviceIDNotFound(t *testing.T) {
	reg := New(newMockRepository())

	_, err := reg.GetByDeviceID(context.Background(), "29:999999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByDeviceID() error = %v, want ErrNotFound", err)
	}
}

func TestFirstDeviceInArea(t *testing.T) {
	repo := newMockRepository()
	reg := New(repo)
	ctx := context.Background()

	rec, _, _, err := reg.CreateOrUpdate(ctx, fanRecord())
	if err != nil {
		t.Fatalf("CreateOrUpdate() error = %v", err)
	}
	if err := reg.AssignArea(ctx, rec.DeviceID, "bathroom"); err != nil {
		t.Fatalf("AssignArea() error = %v", err)
	}

	got, err := reg.FirstDeviceInArea(ctx, "bathroom")
	if err != nil {
		t.Fatalf("FirstDeviceInArea() error = %v", err)
	}
	if got != "32:153289" {
		t.Errorf("FirstDeviceInArea() = %q, want %q", got, "32:153289")
	}

	if _, err := reg.FirstDeviceInArea(ctx, "empty-area"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FirstDeviceInArea(empty) error = %v, want ErrNotFound", err)
	}
}

func TestValidateRejectsBadDeviceID(t *testing.T) {
	rec := fanRecord()
	rec.ID = "some-uuid"
	rec.DeviceID = "not-an-address"

	if err := rec.Validate(); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("Validate() error = %v, want ErrInvalidRecord", err)
	}
}
