package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// Repository defines the persistence interface for registry records.
// The SQLite implementation is used in production; tests substitute mocks.
type Repository interface {
	// GetByID retrieves a record by its registry UUID.
	// Returns ErrNotFound if no such record exists.
	GetByID(ctx context.Context, id string) (*Record, error)

	// GetByDeviceID retrieves a record by its RF device id.
	// Returns ErrNotFound if no such record exists.
	GetByDeviceID(ctx context.Context, deviceID ramses.DeviceID) (*Record, error)

	// List retrieves all records ordered by name.
	List(ctx context.Context) ([]Record, error)

	// ListByArea retrieves all records assigned to an area.
	ListByArea(ctx context.Context, areaID string) ([]Record, error)

	// Create inserts a new record. Returns ErrExists on id collision.
	Create(ctx context.Context, rec *Record) error

	// Update modifies an existing record. Returns ErrNotFound if absent.
	Update(ctx context.Context, rec *Record) error

	// Delete removes a record by registry UUID.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository against the entities table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const recordColumns = "id, device_id, kind, name, model, via_device, area_id, created_at, updated_at"

// GetByID retrieves a record by its registry UUID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM entities WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying record by id: %w", err)
	}
	return rec, nil
}

// GetByDeviceID retrieves a record by its RF device id.
func (r *SQLiteRepository) GetByDeviceID(ctx context.Context, deviceID ramses.DeviceID) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM entities WHERE device_id = ?", string(deviceID))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying record by device id: %w", err)
	}
	return rec, nil
}

// List retrieves all records ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	return r.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM entities ORDER BY name")
}

// ListByArea retrieves all records assigned to an area, ordered by name.
func (r *SQLiteRepository) ListByArea(ctx context.Context, areaID string) ([]Record, error) {
	return r.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM entities WHERE area_id = ? ORDER BY name", areaID)
}

// Create inserts a new record.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entities (id, device_id, kind, name, model, via_device, area_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		string(rec.DeviceID),
		string(rec.Kind),
		rec.Name,
		rec.Model,
		string(rec.ViaDevice),
		rec.AreaID,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrExists, rec.ID)
		}
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// Update modifies an existing record.
func (r *SQLiteRepository) Update(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	rec.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE entities
		SET device_id = ?, kind = ?, name = ?, model = ?, via_device = ?, area_id = ?, updated_at = ?
		WHERE id = ?`,
		string(rec.DeviceID),
		string(rec.Kind),
		rec.Name,
		rec.Model,
		string(rec.ViaDevice),
		rec.AreaID,
		rec.UpdatedAt.Format(time.RFC3339),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	return nil
}

// Delete removes a record by registry UUID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var deviceID, kind, viaDevice, createdAt, updatedAt string

	if err := row.Scan(
		&rec.ID,
		&deviceID,
		&kind,
		&rec.Name,
		&rec.Model,
		&viaDevice,
		&rec.AreaID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	rec.DeviceID = ramses.DeviceID(deviceID)
	rec.Kind = ramses.EntityKind(kind)
	rec.ViaDevice = ramses.DeviceID(viaDevice)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled

	return &rec, nil
}
