package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/hotel-booking/internal/persistence"
	"github.com/example/hotel-booking/internal/persistence/sqlite"
)

// SQLiteHarness exposes every repository over a migrated temporary database.
type SQLiteHarness struct {
	Users        persistence.UserRepository
	Sessions     persistence.SessionRepository
	Rooms        persistence.RoomRepository
	Amenities    persistence.AmenityRepository
	Services     persistence.ServiceRepository
	Reservations persistence.ReservationRepository
	Payments     persistence.PaymentRepository
	Inquiries    persistence.InquiryRepository
	Stats        persistence.StatsRepository

	Storage *sqlite.Storage
	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database in tb.TempDir. The storage is
// closed through tb.Cleanup; calling Close earlier is allowed.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "hotel.db")
	storage, err := sqlite.OpenWithConfig(sqlite.TempFileTestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Users:        storage,
		Sessions:     storage,
		Rooms:        storage,
		Amenities:    storage,
		Services:     storage,
		Reservations: storage,
		Payments:     storage,
		Inquiries:    storage,
		Stats:        storage,
		Storage:      storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedUsers inserts the fixtures and fails the test on error.
func (h *SQLiteHarness) SeedUsers(tb testing.TB, users ...UserFixture) {
	tb.Helper()
	for _, u := range users {
		if err := h.Users.CreateUser(context.Background(), u.Persistence()); err != nil {
			tb.Fatalf("failed to seed user %s: %v", u.ID, err)
		}
	}
}

// SeedRooms inserts the fixtures and fails the test on error.
func (h *SQLiteHarness) SeedRooms(tb testing.TB, rooms ...RoomFixture) {
	tb.Helper()
	for _, r := range rooms {
		if err := h.Rooms.CreateRoom(context.Background(), r.Persistence()); err != nil {
			tb.Fatalf("failed to seed room %s: %v", r.ID, err)
		}
	}
}

// SeedReservations books the fixtures and fails the test on error.
func (h *SQLiteHarness) SeedReservations(tb testing.TB, reservations ...ReservationFixture) {
	tb.Helper()
	for _, r := range reservations {
		if err := h.Reservations.CreateBooking(context.Background(), r.Booking()); err != nil {
			tb.Fatalf("failed to seed reservation %s: %v", r.ID, err)
		}
	}
}
