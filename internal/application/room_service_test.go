package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/example/hotel-booking/internal/persistence"
)

func TestRoomService_CreateRoom(t *testing.T) {
	t.Parallel()

	valid := RoomInput{
		Number:     " 101 ",
		Type:       "Double",
		PriceCents: 12000,
		Capacity:   2,
		Amenities:  []string{" WiFi", "wifi", "", "Minibar"},
	}

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()
		svc := NewRoomService(newRoomRepoStub(), nil, nil)

		if _, err := svc.CreateRoom(context.Background(), CreateRoomParams{Principal: testOperator, Input: valid}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("normalizes input and defaults the status", func(t *testing.T) {
		t.Parallel()
		repo := newRoomRepoStub()
		svc := NewRoomService(repo, func() string { return "room-1" }, fixedNow)

		room, err := svc.CreateRoom(context.Background(), CreateRoomParams{Principal: testAdmin, Input: valid})
		if err != nil {
			t.Fatalf("CreateRoom failed: %v", err)
		}
		if room.Number != "101" || room.Status != RoomStatusAvailable {
			t.Fatalf("unexpected room %+v", room)
		}
		if !reflect.DeepEqual(room.Amenities, []string{"WiFi", "Minibar"}) {
			t.Fatalf("expected de-duplicated amenities, got %v", room.Amenities)
		}
		if _, ok := repo.rooms["room-1"]; !ok {
			t.Fatalf("expected room to be stored")
		}
	})

	t.Run("returns validation errors", func(t *testing.T) {
		t.Parallel()
		svc := NewRoomService(newRoomRepoStub(), nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{Principal: testAdmin, Input: RoomInput{Status: "closed"}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"number", "type", "price", "capacity", "status"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("maps duplicate numbers", func(t *testing.T) {
		t.Parallel()
		repo := newRoomRepoStub()
		repo.createErr = fmt.Errorf("%w: UNIQUE constraint failed: rooms.number", persistence.ErrDuplicate)
		svc := NewRoomService(repo, nil, nil)

		if _, err := svc.CreateRoom(context.Background(), CreateRoomParams{Principal: testAdmin, Input: valid}); !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestRoomService_UpdateAndStatus(t *testing.T) {
	t.Parallel()

	existing := Room{ID: "room-1", Number: "101", Type: "Double", PriceCents: 12000, Capacity: 2, Status: RoomStatusOccupied}

	t.Run("keeps the status when omitted", func(t *testing.T) {
		t.Parallel()
		repo := newRoomRepoStub(existing)
		svc := NewRoomService(repo, nil, fixedNow)

		room, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
			Principal: testAdmin,
			RoomID:    "room-1",
			Input:     RoomInput{Number: "101", Type: "Suite", PriceCents: 30000, Capacity: 4},
		})
		if err != nil {
			t.Fatalf("UpdateRoom failed: %v", err)
		}
		if room.Status != RoomStatusOccupied || room.Type != "Suite" || !room.UpdatedAt.Equal(testNow) {
			t.Fatalf("unexpected room %+v", room)
		}
	})

	t.Run("missing rooms are not found", func(t *testing.T) {
		t.Parallel()
		svc := NewRoomService(newRoomRepoStub(), nil, nil)

		_, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{Principal: testAdmin, RoomID: "nope", Input: RoomInput{Number: "1", Type: "x", PriceCents: 1, Capacity: 1}})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("staff set the housekeeping status", func(t *testing.T) {
		t.Parallel()
		repo := newRoomRepoStub(existing)
		svc := NewRoomService(repo, nil, fixedNow)

		room, err := svc.SetRoomStatus(context.Background(), SetRoomStatusParams{Principal: testOperator, RoomID: "room-1", Status: "Maintenance"})
		if err != nil {
			t.Fatalf("SetRoomStatus failed: %v", err)
		}
		if room.Status != RoomStatusMaintenance {
			t.Fatalf("expected maintenance, got %s", room.Status)
		}
		if _, err := svc.SetRoomStatus(context.Background(), SetRoomStatusParams{Principal: testGuest, RoomID: "room-1", Status: "available"}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestRoomService_DeleteRoom(t *testing.T) {
	t.Parallel()

	repo := newRoomRepoStub(Room{ID: "room-1", Number: "101"})
	repo.deleteErr = fmt.Errorf("%w: FOREIGN KEY constraint failed", persistence.ErrForeignKeyViolation)
	svc := NewRoomService(repo, nil, nil)

	if err := svc.DeleteRoom(context.Background(), testAdmin, "room-1"); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}

	repo.deleteErr = nil
	if err := svc.DeleteRoom(context.Background(), testAdmin, "room-1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := svc.GetRoom(context.Background(), "room-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRoomService_ListRooms(t *testing.T) {
	t.Parallel()

	repo := newRoomRepoStub(Room{ID: "b", Number: "202"}, Room{ID: "a", Number: "101"})
	svc := NewRoomService(repo, nil, nil)

	rooms, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Number != "101" {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
}
