package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/hotel-booking/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	UpdateRoom(ctx context.Context, room Room) error
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]Room, error)
}

// RoomService orchestrates validation, authorization, and persistence for rooms.
type RoomService struct {
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room for administrators.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID, "number", room.Number).InfoContext(ctx, "room created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return
	}

	input := normalizeRoomInput(params.Input)
	if input.Status == "" {
		input.Status = RoomStatusAvailable
	}
	if err = validateRoomInput(input).orNil(); err != nil {
		return
	}

	now := s.now()
	room = Room{
		ID:          s.idGenerator(),
		Number:      input.Number,
		Type:        input.Type,
		PriceCents:  input.PriceCents,
		Capacity:    input.Capacity,
		Amenities:   input.Amenities,
		Status:      input.Status,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.rooms == nil {
		return
	}
	if err = s.rooms.CreateRoom(ctx, room); err != nil {
		room = Room{}
		err = mapRoomRepoError(err)
	}
	return
}

// UpdateRoom validates input and updates an existing room for administrators.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return
	}

	var existing Room
	existing, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	input := normalizeRoomInput(params.Input)
	if input.Status == "" {
		input.Status = existing.Status
	}
	if err = validateRoomInput(input).orNil(); err != nil {
		return
	}

	updated := existing
	updated.Number = input.Number
	updated.Type = input.Type
	updated.PriceCents = input.PriceCents
	updated.Capacity = input.Capacity
	updated.Amenities = input.Amenities
	updated.Status = input.Status
	updated.Description = input.Description
	updated.UpdatedAt = s.now()

	if err = s.rooms.UpdateRoom(ctx, updated); err != nil {
		err = mapRoomRepoError(err)
		return
	}
	room = updated
	return
}

// SetRoomStatus records a housekeeping status change. Staff only.
func (s *RoomService) SetRoomStatus(ctx context.Context, params SetRoomStatusParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetRoomStatus",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
		"status", params.Status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set room status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room status set")
	}()

	if err = requireStaff(params.Principal); err != nil {
		return
	}

	status := strings.ToLower(strings.TrimSpace(params.Status))
	if !validRoomStatus(status) {
		err = NewValidationError("status", "status must be one of available, occupied, maintenance")
		return
	}

	room, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}
	room.Status = status
	room.UpdatedAt = s.now()
	if err = s.rooms.UpdateRoom(ctx, room); err != nil {
		room = Room{}
		err = mapRoomRepoError(err)
	}
	return
}

// DeleteRoom removes a room that no reservation references.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)

	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "room deleted")
	return nil
}

// GetRoom returns a single room. Rooms are public.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// ListRooms returns the catalog of rooms ordered by number.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	rooms, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapRoomRepoError(err)
	}
	return
}

func normalizeRoomInput(input RoomInput) RoomInput {
	input.Number = strings.TrimSpace(input.Number)
	input.Type = strings.TrimSpace(input.Type)
	input.Description = strings.TrimSpace(input.Description)
	input.Status = strings.ToLower(strings.TrimSpace(input.Status))
	input.Amenities = normalizeAmenities(input.Amenities)
	return input
}

// normalizeAmenities trims names and drops blanks and case-insensitive
// duplicates, keeping the first spelling.
func normalizeAmenities(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Number == "" {
		vErr.add("number", "number is required")
	}
	if input.Type == "" {
		vErr.add("type", "type is required")
	}
	if input.PriceCents <= 0 {
		vErr.add("price", "price must be positive")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if input.Status != "" && !validRoomStatus(input.Status) {
		vErr.add("status", "status must be one of available, occupied, maintenance")
	}

	return vErr
}

func validRoomStatus(status string) bool {
	switch status {
	case RoomStatusAvailable, RoomStatusOccupied, RoomStatusMaintenance:
		return true
	}
	return false
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return NewValidationError("room", err.Error())
	}
	return mapRepoError(err)
}
