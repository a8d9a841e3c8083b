package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository stores issued token identifiers.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// AmenityRepository stores the amenity catalog.
type AmenityRepository interface {
	CreateAmenity(ctx context.Context, amenity Amenity) error
	ListAmenities(ctx context.Context) ([]Amenity, error)
}

// ServiceRepository exposes CRUD operations for hotel services.
type ServiceRepository interface {
	CreateService(ctx context.Context, service Service) error
	UpdateService(ctx context.Context, service Service) error
	GetService(ctx context.Context, id string) (Service, error)
	ListServices(ctx context.Context, onlyAvailable bool) ([]Service, error)
	DeleteService(ctx context.Context, id string) error
}

// ReservationFilter narrows reservation queries. Empty fields match everything.
type ReservationFilter struct {
	UserID string
	RoomID string
	Status string
}

// ReservationRepository stores reservations and performs the transactional
// booking writes.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	ListActiveReservationsForRoom(ctx context.Context, roomID string) ([]Reservation, error)
	// CreateBooking inserts the reservation and payment and updates the room
	// status in one transaction. It returns ErrConflict when an active
	// reservation of the room overlaps the stay.
	CreateBooking(ctx context.Context, booking Booking) error
	// UpdateReservation rewrites room, dates, guests and total of an active
	// reservation, guarded by the same overlap query. When inquiry is not nil
	// it is updated in the same transaction.
	UpdateReservation(ctx context.Context, reservation Reservation, inquiry *Inquiry) error
	// TransitionReservation moves a reservation from one status to another.
	// It returns ErrStaleState when the current status is not from.
	TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error
}

// PaymentFilter narrows payment queries.
type PaymentFilter struct {
	UserID        string
	ReservationID string
	Status        string
}

// PaymentRepository reads and updates payments. Payments are created by
// ReservationRepository.CreateBooking.
type PaymentRepository interface {
	GetPayment(ctx context.Context, id string) (Payment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	UpdatePaymentStatus(ctx context.Context, id, from, to string, at time.Time) error
}

// InquiryFilter narrows inquiry queries.
type InquiryFilter struct {
	UserID             string
	Status             string
	ReservationIDs     []string
	ChangeRequestsOnly bool
}

// InquiryRepository stores support tickets and change requests.
type InquiryRepository interface {
	CreateInquiry(ctx context.Context, inquiry Inquiry) error
	UpdateInquiry(ctx context.Context, inquiry Inquiry) error
	GetInquiry(ctx context.Context, id string) (Inquiry, error)
	ListInquiries(ctx context.Context, filter InquiryFilter) ([]Inquiry, error)
}

// StatsRepository computes revenue statistics. Nil bounds are open.
type StatsRepository interface {
	RevenueStats(ctx context.Context, from, to *time.Time) (RevenueStats, error)
}
