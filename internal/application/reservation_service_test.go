package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/hotel-booking/internal/events"
	"github.com/example/hotel-booking/internal/lock"
)

type reservationFixture struct {
	svc          *ReservationService
	rooms        *roomRepoStub
	reservations *reservationRepoStub
	inquiries    *inquiryRepoStub
	publisher    *publisherStub
}

func testRooms() []Room {
	return []Room{
		{ID: "room-1", Number: "101", Type: "Double", PriceCents: 12000, Capacity: 2, Status: RoomStatusAvailable},
		{ID: "room-2", Number: "201", Type: "Suite", PriceCents: 20000, Capacity: 4, Status: RoomStatusAvailable},
		{ID: "room-3", Number: "301", Type: "Single", PriceCents: 8000, Capacity: 1, Status: RoomStatusAvailable},
	}
}

func activeReservation(id, userID, roomID, checkIn, checkOut string, guests int) Reservation {
	return Reservation{
		ID:         id,
		UserID:     userID,
		RoomID:     roomID,
		CheckIn:    date(checkIn),
		CheckOut:   date(checkOut),
		Guests:     guests,
		Status:     ReservationActive,
		TotalCents: 1,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
}

func newReservationFixture(existing ...Reservation) reservationFixture {
	rooms := newRoomRepoStub(testRooms()...)
	inquiries := newInquiryRepoStub()
	reservations := newReservationRepoStub(rooms, inquiries, existing...)
	publisher := &publisherStub{}
	svc := NewReservationService(reservations, rooms, inquiries, lock.NewMemoryLocker(), publisher, time.UTC, sequentialIDs("id"), fixedNow)
	return reservationFixture{svc: svc, rooms: rooms, reservations: reservations, inquiries: inquiries, publisher: publisher}
}

func TestReservationService_CheckAvailability(t *testing.T) {
	t.Parallel()

	f := newReservationFixture(activeReservation("res-1", "guest-1", "room-1", "2025-06-10", "2025-06-15", 2))
	ctx := context.Background()

	cases := []struct {
		name      string
		checkIn   string
		checkOut  string
		exclude   string
		available bool
		conflicts int
	}{
		{name: "overlapping stay", checkIn: "2025-06-12", checkOut: "2025-06-18", available: false, conflicts: 1},
		{name: "disjoint stay", checkIn: "2025-06-16", checkOut: "2025-06-20", available: true},
		{name: "same-day turnover", checkIn: "2025-06-15", checkOut: "2025-06-17", available: false, conflicts: 1},
		{name: "excluding itself", checkIn: "2025-06-11", checkOut: "2025-06-14", exclude: "res-1", available: true},
	}
	for _, tc := range cases {
		result, err := f.svc.CheckAvailability(ctx, AvailabilityParams{
			RoomID:               "room-1",
			CheckIn:              date(tc.checkIn),
			CheckOut:             date(tc.checkOut),
			ExcludeReservationID: tc.exclude,
		})
		if err != nil {
			t.Fatalf("%s: CheckAvailability failed: %v", tc.name, err)
		}
		if result.Available != tc.available || result.ConflictingCount != tc.conflicts {
			t.Fatalf("%s: got %+v", tc.name, result)
		}
	}

	var vErr *ValidationError
	if _, err := f.svc.CheckAvailability(ctx, AvailabilityParams{RoomID: "room-1", CheckIn: date("2025-06-12"), CheckOut: date("2025-06-12")}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for an empty range, got %v", err)
	}
	if _, err := f.svc.CheckAvailability(ctx, AvailabilityParams{RoomID: "nope", CheckIn: date("2025-06-12"), CheckOut: date("2025-06-13")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReservationService_CreateReservation(t *testing.T) {
	t.Parallel()

	t.Run("books the room with a pending payment", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture()

		res, err := f.svc.CreateReservation(context.Background(), CreateReservationParams{
			Principal: testGuest,
			RoomID:    "room-1",
			CheckIn:   date("2025-06-10"),
			CheckOut:  date("2025-06-13"),
			Guests:    2,
		})
		if err != nil {
			t.Fatalf("CreateReservation failed: %v", err)
		}
		if res.UserID != "guest-1" || res.Status != ReservationActive || res.TotalCents != 36000 {
			t.Fatalf("unexpected reservation %+v", res)
		}
		if len(f.reservations.payments) != 1 {
			t.Fatalf("expected one payment, got %d", len(f.reservations.payments))
		}
		for _, p := range f.reservations.payments {
			if p.Status != PaymentPending || p.Method != PaymentMethodCard || p.AmountCents != 36000 || p.ReservationID != res.ID {
				t.Fatalf("unexpected payment %+v", p)
			}
		}
		if f.rooms.rooms["room-1"].Status != RoomStatusOccupied {
			t.Fatalf("expected room to be occupied")
		}
		if got := f.publisher.types(); len(got) != 1 || got[0] != events.ReservationCreated {
			t.Fatalf("expected one created event, got %v", got)
		}
	})

	t.Run("rejects a past check-in without writing", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture()

		_, err := f.svc.CreateReservation(context.Background(), CreateReservationParams{
			Principal: testGuest,
			RoomID:    "room-1",
			CheckIn:   date("2025-05-31"),
			CheckOut:  date("2025-06-02"),
			Guests:    1,
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["checkIn"] == "" {
			t.Fatalf("expected checkIn validation error, got %v", err)
		}
		if f.reservations.bookings != 0 {
			t.Fatalf("expected no booking, got %d", f.reservations.bookings)
		}
	})

	t.Run("today follows the hotel time zone", func(t *testing.T) {
		t.Parallel()
		rooms := newRoomRepoStub(testRooms()...)
		reservations := newReservationRepoStub(rooms, nil)
		lateEvening := func() time.Time { return time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC) }
		tokyo := time.FixedZone("JST", 9*60*60)
		svc := NewReservationService(reservations, rooms, nil, nil, nil, tokyo, sequentialIDs("id"), lateEvening)

		_, err := svc.CreateReservation(context.Background(), CreateReservationParams{
			Principal: testGuest,
			RoomID:    "room-1",
			CheckIn:   date("2025-06-01"),
			CheckOut:  date("2025-06-03"),
			Guests:    1,
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected 2025-06-01 to be in the past in Tokyo, got %v", err)
		}
	})

	t.Run("validates guests against capacity", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture()

		_, err := f.svc.CreateReservation(context.Background(), CreateReservationParams{
			Principal: testGuest,
			RoomID:    "room-1",
			CheckIn:   date("2025-06-10"),
			CheckOut:  date("2025-06-12"),
			Guests:    3,
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["guests"] == "" {
			t.Fatalf("expected guests validation error, got %v", err)
		}
	})

	t.Run("refuses overlapping stays", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture(activeReservation("res-1", "guest-2", "room-1", "2025-06-10", "2025-06-15", 1))

		_, err := f.svc.CreateReservation(context.Background(), CreateReservationParams{
			Principal: testGuest,
			RoomID:    "room-1",
			CheckIn:   date("2025-06-12"),
			CheckOut:  date("2025-06-18"),
			Guests:    1,
		})
		if !errors.Is(err, ErrRoomUnavailable) {
			t.Fatalf("expected ErrRoomUnavailable, got %v", err)
		}
		if f.reservations.bookings != 0 {
			t.Fatalf("expected no booking")
		}
	})

	t.Run("only staff book for other users", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture()
		params := CreateReservationParams{
			Principal: testGuest,
			UserID:    "guest-2",
			RoomID:    "room-2",
			CheckIn:   date("2025-06-10"),
			CheckOut:  date("2025-06-12"),
			Guests:    1,
		}

		if _, err := f.svc.CreateReservation(context.Background(), params); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}

		params.Principal = testOperator
		params.PaymentMethod = "Cash"
		res, err := f.svc.CreateReservation(context.Background(), params)
		if err != nil {
			t.Fatalf("CreateReservation as operator failed: %v", err)
		}
		if res.UserID != "guest-2" {
			t.Fatalf("expected booking for guest-2, got %s", res.UserID)
		}
		for _, p := range f.reservations.payments {
			if p.Method != PaymentMethodCash {
				t.Fatalf("expected cash payment, got %s", p.Method)
			}
		}
	})

	t.Run("publisher failures do not fail the booking", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture()
		f.publisher.err = errors.New("broker down")

		if _, err := f.svc.CreateReservation(context.Background(), CreateReservationParams{
			Principal: testGuest,
			RoomID:    "room-1",
			CheckIn:   date("2025-06-10"),
			CheckOut:  date("2025-06-11"),
			Guests:    1,
		}); err != nil {
			t.Fatalf("expected booking to succeed, got %v", err)
		}
	})
}

func TestReservationService_ConcurrentBookingsOnlyOneWins(t *testing.T) {
	t.Parallel()

	f := newReservationFixture()
	const writers = 8

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateReservation(context.Background(), CreateReservationParams{
				Principal: Principal{UserID: "guest-1", Role: RoleGuest},
				RoomID:    "room-1",
				CheckIn:   date("2025-06-10").AddDate(0, 0, i%2),
				CheckOut:  date("2025-06-14"),
				Guests:    1,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrRoomUnavailable):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 || f.reservations.bookings != 1 {
		t.Fatalf("expected exactly one booking, got %d wins and %d bookings", wins, f.reservations.bookings)
	}
}

func TestReservationService_EditReservation(t *testing.T) {
	t.Parallel()

	t.Run("rejects a room that is too small before writing", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture(activeReservation("res-1", "guest-1", "room-1", "2025-06-10", "2025-06-12", 2))

		_, err := f.svc.EditReservation(context.Background(), EditReservationParams{
			Principal:     testOperator,
			ReservationID: "res-1",
			Change:        StayChange{RoomID: ptr("room-3")},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["guests"] == "" {
			t.Fatalf("expected guests validation error, got %v", err)
		}
		if f.reservations.updates != 0 {
			t.Fatalf("expected no write, got %d", f.reservations.updates)
		}
	})

	t.Run("recomputes the total", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture(activeReservation("res-1", "guest-1", "room-1", "2025-06-10", "2025-06-12", 2))

		res, err := f.svc.EditReservation(context.Background(), EditReservationParams{
			Principal:     testAdmin,
			ReservationID: "res-1",
			Change:        StayChange{RoomID: ptr("room-2"), CheckOut: ptr(date("2025-06-14"))},
		})
		if err != nil {
			t.Fatalf("EditReservation failed: %v", err)
		}
		if res.RoomID != "room-2" || res.TotalCents != 4*20000 {
			t.Fatalf("unexpected reservation %+v", res)
		}
		if got := f.publisher.types(); len(got) != 1 || got[0] != events.ReservationUpdated {
			t.Fatalf("expected an updated event, got %v", got)
		}
	})

	t.Run("extending into another stay conflicts", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture(
			activeReservation("res-1", "guest-1", "room-1", "2025-06-10", "2025-06-12", 1),
			activeReservation("res-2", "guest-2", "room-1", "2025-06-14", "2025-06-16", 1),
		)

		_, err := f.svc.EditReservation(context.Background(), EditReservationParams{
			Principal:     testOperator,
			ReservationID: "res-1",
			Change:        StayChange{CheckOut: ptr(date("2025-06-14"))},
		})
		if !errors.Is(err, ErrRoomUnavailable) {
			t.Fatalf("expected ErrRoomUnavailable, got %v", err)
		}
	})

	t.Run("only active reservations are edited by staff", func(t *testing.T) {
		t.Parallel()
		cancelled := activeReservation("res-1", "guest-1", "room-1", "2025-06-10", "2025-06-12", 1)
		cancelled.Status = ReservationCancelled
		f := newReservationFixture(cancelled)

		change := StayChange{Guests: ptr(2)}
		if _, err := f.svc.EditReservation(context.Background(), EditReservationParams{Principal: testOperator, ReservationID: "res-1", Change: change}); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if _, err := f.svc.EditReservation(context.Background(), EditReservationParams{Principal: testGuest, ReservationID: "res-1", Change: change}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestReservationService_Transitions(t *testing.T) {
	t.Parallel()

	t.Run("owners cancel once", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture(activeReservation("res-1", "guest-1", "room-1", "2025-06-10", "2025-06-12", 1))
		ctx := context.Background()

		if _, err := f.svc.CancelReservation(ctx, Principal{UserID: "guest-2", Role: RoleGuest}, "res-1"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		res, err := f.svc.CancelReservation(ctx, testGuest, "res-1")
		if err != nil {
			t.Fatalf("CancelReservation failed: %v", err)
		}
		if res.Status != ReservationCancelled {
			t.Fatalf("expected cancelled, got %s", res.Status)
		}
		if _, err := f.svc.CancelReservation(ctx, testGuest, "res-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if _, err := f.svc.CompleteReservation(ctx, testOperator, "res-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected cancelled to be terminal, got %v", err)
		}
	})

	t.Run("staff complete", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture(activeReservation("res-1", "guest-1", "room-1", "2025-06-10", "2025-06-12", 1))
		ctx := context.Background()

		if _, err := f.svc.CompleteReservation(ctx, testGuest, "res-1"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		res, err := f.svc.CompleteReservation(ctx, testOperator, "res-1")
		if err != nil {
			t.Fatalf("CompleteReservation failed: %v", err)
		}
		if res.Status != ReservationCompleted {
			t.Fatalf("expected completed, got %s", res.Status)
		}
		if got := f.publisher.types(); len(got) != 1 || got[0] != events.ReservationCompleted {
			t.Fatalf("expected a completed event, got %v", got)
		}
	})
}

func TestReservationService_ListReservations(t *testing.T) {
	t.Parallel()

	f := newReservationFixture(
		activeReservation("res-1", "guest-1", "room-1", "2025-06-10", "2025-06-12", 1),
		activeReservation("res-2", "guest-2", "room-2", "2025-06-10", "2025-06-12", 1),
	)
	ctx := context.Background()

	own, err := f.svc.ListReservations(ctx, ListReservationsParams{Principal: testGuest, UserID: "guest-2"})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(own) != 1 || own[0].ID != "res-1" || own[0].ChangeState != ChangeNone {
		t.Fatalf("expected only the guest's reservation, got %+v", own)
	}

	all, err := f.svc.ListReservations(ctx, ListReservationsParams{Principal: testOperator})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected staff to see every reservation, got %d", len(all))
	}

	if _, err := f.svc.GetReservation(ctx, testGuest, "res-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeriveChangeState(t *testing.T) {
	t.Parallel()

	resID := "res-1"
	at := func(minutes int) time.Time { return testNow.Add(time.Duration(minutes) * time.Minute) }
	req := func(resolution string, updated int) Inquiry {
		return Inquiry{ReservationID: &resID, Resolution: resolution, UpdatedAt: at(updated)}
	}

	cases := []struct {
		name     string
		requests []Inquiry
		want     ChangeState
	}{
		{name: "no requests", want: ChangeNone},
		{name: "unresolved wins", requests: []Inquiry{req(ResolutionApproved, 5), req(ResolutionNone, 1)}, want: ChangePending},
		{name: "latest rejected", requests: []Inquiry{req(ResolutionApproved, 1), req(ResolutionRejected, 5)}, want: ChangeRejected},
		{name: "latest approved", requests: []Inquiry{req(ResolutionRejected, 1), req(ResolutionApproved, 5)}, want: ChangeApplied},
	}
	for _, tc := range cases {
		if got := deriveChangeState(tc.requests); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}
