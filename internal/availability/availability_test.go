package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDate(value)
	require.NoError(t, err)
	return d
}

func TestCheck(t *testing.T) {
	existing := []Stay{{
		ReservationID: "res-1",
		RoomID:        "room-r",
		CheckIn:       date(t, "2025-06-10"),
		CheckOut:      date(t, "2025-06-15"),
		Active:        true,
	}}

	tests := []struct {
		name      string
		req       Request
		available bool
		count     int
	}{
		{
			name:      "overlapping range conflicts",
			req:       Request{RoomID: "room-r", CheckIn: date(t, "2025-06-12"), CheckOut: date(t, "2025-06-18")},
			available: false,
			count:     1,
		},
		{
			name:      "range after checkout is free",
			req:       Request{RoomID: "room-r", CheckIn: date(t, "2025-06-16"), CheckOut: date(t, "2025-06-20")},
			available: true,
		},
		{
			name:      "checkin on existing checkout day conflicts",
			req:       Request{RoomID: "room-r", CheckIn: date(t, "2025-06-15"), CheckOut: date(t, "2025-06-20")},
			available: false,
			count:     1,
		},
		{
			name:      "checkout on existing checkin day conflicts",
			req:       Request{RoomID: "room-r", CheckIn: date(t, "2025-06-05"), CheckOut: date(t, "2025-06-10")},
			available: false,
			count:     1,
		},
		{
			name:      "range enclosing existing stay conflicts",
			req:       Request{RoomID: "room-r", CheckIn: date(t, "2025-06-01"), CheckOut: date(t, "2025-06-30")},
			available: false,
			count:     1,
		},
		{
			name:      "range before checkin is free",
			req:       Request{RoomID: "room-r", CheckIn: date(t, "2025-06-01"), CheckOut: date(t, "2025-06-09")},
			available: true,
		},
		{
			name:      "excluded reservation is ignored",
			req:       Request{RoomID: "room-r", CheckIn: date(t, "2025-06-12"), CheckOut: date(t, "2025-06-18"), ExcludeReservationID: "res-1"},
			available: true,
		},
		{
			name:      "other rooms are ignored",
			req:       Request{RoomID: "room-s", CheckIn: date(t, "2025-06-12"), CheckOut: date(t, "2025-06-18")},
			available: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(existing, tt.req)
			assert.Equal(t, tt.available, got.Available)
			assert.Equal(t, tt.count, got.ConflictingCount)
			assert.Len(t, got.ConflictingIDs, tt.count)
		})
	}
}

func TestCheckIgnoresInactiveStays(t *testing.T) {
	existing := []Stay{
		{ReservationID: "cancelled", RoomID: "r", CheckIn: date(t, "2025-06-10"), CheckOut: date(t, "2025-06-15")},
		{ReservationID: "active", RoomID: "r", CheckIn: date(t, "2025-06-11"), CheckOut: date(t, "2025-06-12"), Active: true},
	}

	got := Check(existing, Request{RoomID: "r", CheckIn: date(t, "2025-06-10"), CheckOut: date(t, "2025-06-14")})

	assert.False(t, got.Available)
	assert.Equal(t, []string{"active"}, got.ConflictingIDs)
}

func TestCheckEmpty(t *testing.T) {
	got := Check(nil, Request{RoomID: "r", CheckIn: date(t, "2025-01-01"), CheckOut: date(t, "2025-01-02")})
	assert.True(t, got.Available)
	assert.Zero(t, got.ConflictingCount)
}

func TestOverlapsIsSymmetric(t *testing.T) {
	a1, a2 := date(t, "2025-03-01"), date(t, "2025-03-05")
	b1, b2 := date(t, "2025-03-04"), date(t, "2025-03-09")
	assert.True(t, Overlaps(a1, a2, b1, b2))
	assert.True(t, Overlaps(b1, b2, a1, a2))
	assert.False(t, Overlaps(a1, a2, date(t, "2025-03-06"), b2))
}

func TestNights(t *testing.T) {
	assert.Equal(t, 5, Nights(date(t, "2025-06-10"), date(t, "2025-06-15")))
	assert.Equal(t, 0, Nights(date(t, "2025-06-15"), date(t, "2025-06-10")))
	assert.Equal(t, 0, Nights(date(t, "2025-06-15"), date(t, "2025-06-15")))

	// across a DST change in a non-UTC zone the count is still whole days
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	in := time.Date(2025, time.March, 29, 15, 0, 0, 0, madrid)
	out := time.Date(2025, time.April, 1, 11, 0, 0, 0, madrid)
	assert.Equal(t, 3, Nights(in, out))
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, time.June, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-10", FormatDate(d))
}
