package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/hotel-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const roomColumns = `id, number, type, price_cents, capacity, amenities, status, description, created_at, updated_at`

// CreateRoom inserts a new room.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	amenities, err := encodeAmenities(room.Amenities)
	if err != nil {
		return err
	}

	_, err = r.helper.Exec(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		room.ID,
		room.Number,
		room.Type,
		room.PriceCents,
		room.Capacity,
		amenities,
		room.Status,
		room.Description,
		formatTimestamp(room.CreatedAt),
		formatTimestamp(room.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateRoom rewrites every mutable column of an existing room.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	amenities, err := encodeAmenities(room.Amenities)
	if err != nil {
		return err
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE rooms
		SET number = ?, type = ?, price_cents = ?, capacity = ?, amenities = ?,
			status = ?, description = ?, updated_at = ?
		WHERE id = ?
	`,
		room.Number,
		room.Type,
		room.PriceCents,
		room.Capacity,
		amenities,
		room.Status,
		room.Description,
		formatTimestamp(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetRoom retrieves a room by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return r.scanRoom(r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
}

// ListRooms returns all rooms ordered by number.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := r.scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

// DeleteRoom removes a room. Rooms referenced by reservations or change
// requests fail with ErrForeignKeyViolation.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *RoomRepository) scanRoom(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var amenities, createdAt, updatedAt string

	err := row.Scan(
		&room.ID,
		&room.Number,
		&room.Type,
		&room.PriceCents,
		&room.Capacity,
		&amenities,
		&room.Status,
		&room.Description,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}

	if err := json.Unmarshal([]byte(amenities), &room.Amenities); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to decode amenities: %w", err)
	}
	if room.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return room, nil
}

func encodeAmenities(amenities []string) (string, error) {
	if amenities == nil {
		amenities = []string{}
	}
	encoded, err := json.Marshal(amenities)
	if err != nil {
		return "", fmt.Errorf("failed to encode amenities: %w", err)
	}
	return string(encoded), nil
}
