package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/hotel-booking/internal/application"
	"github.com/example/hotel-booking/internal/persistence"
)

var (
	userCounter        uint64
	roomCounter        uint64
	reservationCounter uint64
	inquiryCounter     uint64
	sessionCounter     uint64
)

var referenceTime = time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Day returns the civil date value at midnight UTC. It panics on malformed input.
func Day(value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         application.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic guest fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		Name:         fmt.Sprintf("Guest %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleGuest,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserRole sets the account role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Email:     f.Email,
		Name:      f.Name,
		Role:      f.Role,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns the caller identity of the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		Name:         f.Name,
		PasswordHash: f.PasswordHash,
		Role:         string(f.Role),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic hotel room.
type RoomFixture struct {
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

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic available double room.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:         fmt.Sprintf("room-%03d", idx),
		Number:     fmt.Sprintf("%d", 100+idx),
		Type:       "double",
		PriceCents: 20000,
		Capacity:   2,
		Amenities:  []string{"wifi"},
		Status:     application.RoomStatusAvailable,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomNumber overrides the generated room number.
func WithRoomNumber(number string) RoomOption {
	return func(f *RoomFixture) {
		f.Number = number
	}
}

// WithRoomPrice sets the nightly price in cents.
func WithRoomPrice(cents int64) RoomOption {
	return func(f *RoomFixture) {
		f.PriceCents = cents
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomStatus overrides the operational status.
func WithRoomStatus(status string) RoomOption {
	return func(f *RoomFixture) {
		f.Status = status
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:          f.ID,
		Number:      f.Number,
		Type:        f.Type,
		PriceCents:  f.PriceCents,
		Capacity:    f.Capacity,
		Amenities:   append([]string(nil), f.Amenities...),
		Status:      f.Status,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:          f.ID,
		Number:      f.Number,
		Type:        f.Type,
		PriceCents:  f.PriceCents,
		Capacity:    f.Capacity,
		Amenities:   append([]string(nil), f.Amenities...),
		Status:      f.Status,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		Number:      f.Number,
		Type:        f.Type,
		PriceCents:  f.PriceCents,
		Capacity:    f.Capacity,
		Amenities:   append([]string(nil), f.Amenities...),
		Status:      f.Status,
		Description: f.Description,
	}
}

// ------------------------- Reservation fixtures -------------------------

// ReservationFixture represents a deterministic active reservation together
// with the payment written alongside it.
type ReservationFixture struct {
	ID            string
	UserID        string
	RoomID        string
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int
	Status        string
	TotalCents    int64
	PaymentID     string
	PaymentMethod string
	PaymentStatus string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a two-night active stay starting ten days
// after ReferenceTime.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	checkIn := Day("2025-06-11")
	fixture := ReservationFixture{
		ID:            fmt.Sprintf("res-%03d", idx),
		UserID:        "user-001",
		RoomID:        "room-001",
		CheckIn:       checkIn,
		CheckOut:      checkIn.AddDate(0, 0, 2),
		Guests:        1,
		Status:        application.ReservationActive,
		TotalCents:    40000,
		PaymentID:     fmt.Sprintf("pay-%03d", idx),
		PaymentMethod: application.PaymentMethodCard,
		PaymentStatus: application.PaymentPending,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationGuest sets the booking user.
func WithReservationGuest(userID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.UserID = userID
	}
}

// WithReservationRoom sets the booked room.
func WithReservationRoom(roomID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.RoomID = roomID
	}
}

// WithReservationStay sets the stay dates in YYYY-MM-DD form.
func WithReservationStay(checkIn, checkOut string) ReservationOption {
	return func(f *ReservationFixture) {
		f.CheckIn = Day(checkIn)
		f.CheckOut = Day(checkOut)
	}
}

// WithReservationGuests sets the party size.
func WithReservationGuests(guests int) ReservationOption {
	return func(f *ReservationFixture) {
		f.Guests = guests
	}
}

// WithReservationStatus sets the lifecycle status.
func WithReservationStatus(status string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// WithReservationTotal sets the stored total.
func WithReservationTotal(cents int64) ReservationOption {
	return func(f *ReservationFixture) {
		f.TotalCents = cents
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:          f.ID,
		UserID:      f.UserID,
		RoomID:      f.RoomID,
		CheckIn:     f.CheckIn,
		CheckOut:    f.CheckOut,
		Guests:      f.Guests,
		Status:      f.Status,
		TotalCents:  f.TotalCents,
		ChangeState: application.ChangeNone,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:         f.ID,
		UserID:     f.UserID,
		RoomID:     f.RoomID,
		CheckIn:    f.CheckIn,
		CheckOut:   f.CheckOut,
		Guests:     f.Guests,
		Status:     f.Status,
		TotalCents: f.TotalCents,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Booking returns the rows CreateBooking writes for the fixture.
func (f ReservationFixture) Booking() persistence.Booking {
	return persistence.Booking{
		Reservation: f.Persistence(),
		Payment: persistence.Payment{
			ID:            f.PaymentID,
			ReservationID: f.ID,
			AmountCents:   f.TotalCents,
			Method:        f.PaymentMethod,
			Status:        f.PaymentStatus,
			CreatedAt:     f.CreatedAt,
			UpdatedAt:     f.UpdatedAt,
		},
		RoomStatus: application.RoomStatusOccupied,
	}
}

// --------------------------- Inquiry fixtures ---------------------------

// InquiryFixture represents a deterministic support ticket. Setting
// ReservationID and a proposal makes it a change request.
type InquiryFixture struct {
	ID            string
	UserID        string
	ReservationID *string
	Subject       string
	Message       string
	Reply         *string
	Status        string
	Resolution    string
	Proposed      application.StayChange
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InquiryOption configures the generated inquiry fixture.
type InquiryOption func(*InquiryFixture)

// NewInquiryFixture returns a pending general inquiry.
func NewInquiryFixture(opts ...InquiryOption) InquiryFixture {
	idx := atomic.AddUint64(&inquiryCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := InquiryFixture{
		ID:         fmt.Sprintf("inq-%03d", idx),
		UserID:     "user-001",
		Subject:    fmt.Sprintf("Question %03d", idx),
		Message:    "Is breakfast included?",
		Status:     application.InquiryPending,
		Resolution: application.ResolutionNone,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithInquiryID overrides the inquiry ID.
func WithInquiryID(id string) InquiryOption {
	return func(f *InquiryFixture) {
		f.ID = id
	}
}

// WithInquiryUser sets the author.
func WithInquiryUser(userID string) InquiryOption {
	return func(f *InquiryFixture) {
		f.UserID = userID
	}
}

// WithInquiryStatus sets the ticket status.
func WithInquiryStatus(status string) InquiryOption {
	return func(f *InquiryFixture) {
		f.Status = status
	}
}

// WithChangeRequest turns the fixture into a change request for reservationID.
func WithChangeRequest(reservationID string, change application.StayChange) InquiryOption {
	return func(f *InquiryFixture) {
		id := reservationID
		f.ReservationID = &id
		f.Proposed = change
		f.Subject = "Change request for reservation " + reservationID
	}
}

// Application returns the fixture as an application.Inquiry value.
func (f InquiryFixture) Application() application.Inquiry {
	return application.Inquiry{
		ID:            f.ID,
		UserID:        f.UserID,
		ReservationID: copyStringPtr(f.ReservationID),
		Subject:       f.Subject,
		Message:       f.Message,
		Reply:         copyStringPtr(f.Reply),
		Status:        f.Status,
		Resolution:    f.Resolution,
		Proposed:      f.Proposed,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Inquiry value.
func (f InquiryFixture) Persistence() persistence.Inquiry {
	return persistence.Inquiry{
		ID:               f.ID,
		UserID:           f.UserID,
		ReservationID:    copyStringPtr(f.ReservationID),
		Subject:          f.Subject,
		Message:          f.Message,
		Reply:            copyStringPtr(f.Reply),
		Status:           f.Status,
		Resolution:       f.Resolution,
		ProposedRoomID:   copyStringPtr(f.Proposed.RoomID),
		ProposedCheckIn:  f.Proposed.CheckIn,
		ProposedCheckOut: f.Proposed.CheckOut,
		ProposedGuests:   f.Proposed.Guests,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session valid for eight hours after ReferenceTime.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    "user-001",
		ExpiresAt: referenceTime.Add(8 * time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionUserID sets the user ID.
func WithSessionUserID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
