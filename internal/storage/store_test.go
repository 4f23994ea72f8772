package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/quietmesh/rfcoord/internal/infrastructure/database"
	"github.com/quietmesh/rfcoord/internal/ramses"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE coordinator_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	return New(db)
}

func TestLoadNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &Blob{
		ClientState: ClientState{
			Schema: ramses.Schema{
				"known_list": map[string]any{"32:153289": map[string]any{"class": "FAN"}},
			},
			Packets: map[string]string{
				"2026-08-15T10:00:00": "069  I --- 32:153289 --:------ 32:153289 31D9 003 000000",
			},
		},
		Remotes: map[string]string{"32:153289": "29:123456"},
	}

	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(out.ClientState.Packets) != 1 {
		t.Errorf("loaded %d packets, want 1", len(out.ClientState.Packets))
	}
	if out.Remotes["32:153289"] != "29:123456" {
		t.Errorf("Remotes[32:153289] = %q, want %q", out.Remotes["32:153289"], "29:123456")
	}
	if _, ok := out.ClientState.Schema["known_list"]; !ok {
		t.Error("loaded schema missing known_list")
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Blob{Remotes: map[string]string{"32:153289": "29:000001"}}
	second := &Blob{Remotes: map[string]string{"32:153289": "29:000002"}}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save(first) error = %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save(second) error = %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Remotes["32:153289"] != "29:000002" {
		t.Errorf("Remotes[32:153289] = %q, want second save to win", out.Remotes["32:153289"])
	}
}

func TestLoadCorrupt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.db.ExecContext(ctx,
		"INSERT INTO coordinator_state (id, payload, updated_at) VALUES (1, ?, ?)",
		"{not json", "2026-08-15T10:00:00Z",
	); err != nil {
		t.Fatalf("inserting corrupt payload: %v", err)
	}

	_, err := store.Load(ctx)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestLoadInitialisesNilMaps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Blob{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.ClientState.Packets == nil {
		t.Error("Packets map is nil after Load")
	}
	if out.Remotes == nil {
		t.Error("Remotes map is nil after Load")
	}
}
