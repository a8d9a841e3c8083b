package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/hotel-booking/internal/application"
	"github.com/example/hotel-booking/internal/events"
	"github.com/example/hotel-booking/internal/lock"
	"github.com/example/hotel-booking/internal/persistence"
	"github.com/example/hotel-booking/internal/persistence/sqlite"
	"github.com/example/hotel-booking/internal/testfixtures"
)

func openTestStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	storage, err := sqlite.Open(filepath.Join(t.TempDir(), "hotel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	require.NoError(t, storage.Migrate(context.Background()))
	return storage
}

func TestAdapters_ChangeRequestOverSQLite(t *testing.T) {
	ctx := context.Background()
	storage := openTestStorage(t)
	ids := testfixtures.NewIDGenerator("id")
	factory := testfixtures.NewServiceFactory(testfixtures.WithIDGenerator(ids))

	admin := application.Principal{UserID: "admin-1", Role: application.RoleAdmin}
	operator := application.Principal{UserID: "operator-1", Role: application.RoleOperator}
	guest := application.Principal{UserID: "guest-1", Role: application.RoleGuest}

	now := testfixtures.ReferenceTime()
	require.NoError(t, storage.CreateUser(ctx, persistence.User{
		ID:           guest.UserID,
		Email:        "guest@example.com",
		Name:         "Guest",
		PasswordHash: "unused",
		Role:         string(application.RoleGuest),
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	rooms := factory.NewRoomService(testfixtures.RoomServiceDeps{
		Rooms:       newRoomRepositoryAdapter(storage),
		IDGenerator: ids.For("room"),
	})
	single, err := rooms.CreateRoom(ctx, application.CreateRoomParams{Principal: admin, Input: application.RoomInput{
		Number: "101", Type: "single", PriceCents: 8000, Capacity: 1,
	}})
	require.NoError(t, err)
	suite, err := rooms.CreateRoom(ctx, application.CreateRoomParams{Principal: admin, Input: application.RoomInput{
		Number: "201", Type: "suite", PriceCents: 20000, Capacity: 4, Amenities: []string{"wifi", "bath"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "room-1", single.ID)

	inquiries := newInquiryRepositoryAdapter(storage)
	reservations := factory.NewReservationService(testfixtures.ReservationServiceDeps{
		Reservations: newReservationRepositoryAdapter(storage),
		Rooms:        newRoomRepositoryAdapter(storage),
		Inquiries:    inquiries,
		Locker:       lock.NewMemoryLocker(),
		Publisher:    events.NopPublisher{},
		Location:     time.UTC,
	})

	booked, err := reservations.CreateReservation(ctx, application.CreateReservationParams{
		Principal: guest,
		RoomID:    single.ID,
		CheckIn:   testfixtures.Day("2025-06-10"),
		CheckOut:  testfixtures.Day("2025-06-12"),
		Guests:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16000), booked.TotalCents)

	guests := 3
	request, err := reservations.SubmitChangeRequest(ctx, application.SubmitChangeRequestParams{
		Principal:     guest,
		ReservationID: booked.ID,
		Change:        application.StayChange{RoomID: &suite.ID, Guests: &guests},
		Note:          "travelling with family",
	})
	require.NoError(t, err)
	require.NotNil(t, request.ReservationID)
	assert.Equal(t, booked.ID, *request.ReservationID)

	stored, err := inquiries.GetInquiry(ctx, request.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Proposed.RoomID)
	assert.Equal(t, suite.ID, *stored.Proposed.RoomID)
	require.NotNil(t, stored.Proposed.Guests)
	assert.Equal(t, 3, *stored.Proposed.Guests)
	assert.Nil(t, stored.Proposed.CheckIn)

	listed, err := reservations.ListReservations(ctx, application.ListReservationsParams{Principal: guest})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, application.ChangePending, listed[0].ChangeState)

	updated, resolved, err := reservations.ApproveChangeRequest(ctx, application.ResolveChangeRequestParams{
		Principal: operator,
		InquiryID: request.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, suite.ID, updated.RoomID)
	assert.Equal(t, 3, updated.Guests)
	assert.Equal(t, int64(40000), updated.TotalCents)
	assert.Equal(t, application.InquiryAnswered, resolved.Status)
	assert.Equal(t, application.ResolutionApproved, resolved.Resolution)

	listed, err = reservations.ListReservations(ctx, application.ListReservationsParams{Principal: guest})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, application.ChangeApplied, listed[0].ChangeState)
	assert.Equal(t, suite.ID, listed[0].RoomID)
}

func TestConvertAll(t *testing.T) {
	assert.Nil(t, convertAll([]persistence.Amenity{}, func(a persistence.Amenity) string { return a.Name }))

	names := convertAll([]persistence.Amenity{{Name: "wifi"}, {Name: "spa"}}, func(a persistence.Amenity) string { return a.Name })
	assert.Equal(t, []string{"wifi", "spa"}, names)
}

func TestInquiryConversionCopiesPointers(t *testing.T) {
	reservationID := "res-1"
	guests := 2
	checkIn := testfixtures.Day("2025-06-10")
	original := application.Inquiry{
		ID:            "inq-1",
		ReservationID: &reservationID,
		Proposed:      application.StayChange{CheckIn: &checkIn, Guests: &guests},
	}

	model := toPersistenceInquiry(original)
	guests = 9
	reservationID = "changed"

	require.NotNil(t, model.ProposedGuests)
	assert.Equal(t, 2, *model.ProposedGuests)
	assert.Equal(t, "res-1", *model.ReservationID)
	assert.Nil(t, model.ProposedRoomID)

	back := toApplicationInquiry(model)
	assert.Equal(t, checkIn, *back.Proposed.CheckIn)
	assert.True(t, back.IsChangeRequest())
}
