package persistence

import "time"

// User represents a guest or staff account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable hotel room. Amenities are free-text names.
type Room struct {
	ID          string
	Number      string
	Type        string
	PriceCents  int64
	Capacity    int
	Amenities   []string
	Status      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Amenity is an entry of the append-only amenity catalog.
type Amenity struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Service is an extra offered by the hotel (spa, breakfast, transfer).
type Service struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Available   bool
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reservation is a stay of a user in a room. CheckIn and CheckOut are civil
// dates at midnight UTC.
type Reservation struct {
	ID         string
	UserID     string
	RoomID     string
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
	Status     string
	TotalCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Payment records the charge created together with a reservation.
type Payment struct {
	ID            string
	ReservationID string
	AmountCents   int64
	Method        string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Inquiry is a support ticket. A change request is an inquiry whose
// ReservationID is set and which carries at least one proposed value.
type Inquiry struct {
	ID               string
	UserID           string
	ReservationID    *string
	Subject          string
	Message          string
	Reply            *string
	Status           string
	Resolution       string
	ProposedRoomID   *string
	ProposedCheckIn  *time.Time
	ProposedCheckOut *time.Time
	ProposedGuests   *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Session tracks an issued token so it can be revoked before it expires.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Booking groups the rows written atomically when a reservation is created.
type Booking struct {
	Reservation Reservation
	Payment     Payment
	RoomStatus  string
}

// MonthlyRevenue is the completed payment total of one calendar month (YYYY-MM).
type MonthlyRevenue struct {
	Month       string
	AmountCents int64
}

// RevenueStats aggregates payments, reservations and room states.
type RevenueStats struct {
	CompletedRevenueCents int64
	PendingRevenueCents   int64
	ReservationsByStatus  map[string]int
	MonthlyRevenue        []MonthlyRevenue
	RoomsByStatus         map[string]int
	TotalRooms            int
}
