package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quietmesh/rfcoord/internal/infrastructure/database"
	"github.com/quietmesh/rfcoord/internal/ramses"
)

// ClientState is the gateway client's restorable state: the accumulated
// schema and the raw packet cache keyed by ISO-8601 timestamp.
type ClientState struct {
	Schema  ramses.Schema     `json:"schema"`
	Packets map[string]string `json:"packets"`
}

// Blob is the full persisted coordinator state.
type Blob struct {
	ClientState ClientState `json:"client_state"`

	// Remotes maps fan device ids to the remote device id bound to them.
	Remotes map[string]string `json:"remotes"`
}

// Store reads and writes the coordinator state blob. A single row holds
// the entire state; writes replace it wholesale.
type Store struct {
	db *database.DB
}

// New creates a Store backed by the given database.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Load returns the persisted state blob. It returns ErrNotFound when no
// blob has been saved yet and ErrCorrupt when the stored document cannot
// be decoded.
func (s *Store) Load(ctx context.Context) (*Blob, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM coordinator_state WHERE id = 1",
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading coordinator state: %w", err)
	}

	var blob Blob
	if err := json.Unmarshal([]byte(payload), &blob); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if blob.ClientState.Packets == nil {
		blob.ClientState.Packets = make(map[string]string)
	}
	if blob.Remotes == nil {
		blob.Remotes = make(map[string]string)
	}

	return &blob, nil
}

// Save persists the state blob, replacing any previous one.
func (s *Store) Save(ctx context.Context, blob *Blob) error {
	payload, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encoding coordinator state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO coordinator_state (id, payload, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving coordinator state: %w", err)
	}

	return nil
}
