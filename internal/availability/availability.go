// Package availability decides whether a room can take a stay over a date range.
//
// Stay dates are civil dates. Two stays conflict when
//
//	existing.CheckIn <= requested.CheckOut && existing.CheckOut >= requested.CheckIn
//
// so both endpoints are inclusive: a stay that checks out on the day another
// checks in is reported as a conflict.
package availability

import "time"

// DateLayout is the wire and storage format of stay dates.
const DateLayout = "2006-01-02"

// Stay is an existing booking considered by the checker.
type Stay struct {
	ReservationID string
	RoomID        string
	CheckIn       time.Time
	CheckOut      time.Time
	Active        bool
}

// Request describes the range a caller wants to book.
type Request struct {
	RoomID               string
	CheckIn              time.Time
	CheckOut             time.Time
	ExcludeReservationID string
}

// Result is the outcome of an availability check.
type Result struct {
	Available        bool
	ConflictingCount int
	ConflictingIDs   []string
}

// Overlaps reports whether the two closed date ranges share at least one day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	aStart, aEnd = Day(aStart), Day(aEnd)
	bStart, bEnd = Day(bStart), Day(bEnd)
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// Check evaluates the request against existing stays. Inactive stays, stays in
// other rooms and the excluded reservation never conflict. Check does not
// validate the request range itself.
func Check(existing []Stay, req Request) Result {
	result := Result{Available: true}
	for _, stay := range existing {
		if !stay.Active {
			continue
		}
		if req.RoomID != "" && stay.RoomID != "" && stay.RoomID != req.RoomID {
			continue
		}
		if req.ExcludeReservationID != "" && stay.ReservationID == req.ExcludeReservationID {
			continue
		}
		if Overlaps(stay.CheckIn, stay.CheckOut, req.CheckIn, req.CheckOut) {
			result.ConflictingCount++
			result.ConflictingIDs = append(result.ConflictingIDs, stay.ReservationID)
		}
	}
	result.Available = result.ConflictingCount == 0
	return result
}

// Nights returns the number of nights between two stay dates.
func Nights(checkIn, checkOut time.Time) int {
	in, out := Day(checkIn), Day(checkOut)
	if !out.After(in) {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD stay date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// FormatDate renders a stay date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}
