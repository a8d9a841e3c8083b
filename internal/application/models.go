package application

import "time"

// Role is the access level of an account.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleGuest, RoleOperator, RoleAdmin:
		return Role(value), true
	}
	return "", false
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal is an administrator.
func (p Principal) IsAdmin() bool {
	return p.UserID != "" && p.Role == RoleAdmin
}

// IsStaff reports whether the principal is an operator or administrator.
func (p Principal) IsStaff() bool {
	return p.UserID != "" && (p.Role == RoleOperator || p.Role == RoleAdmin)
}

// Authenticated reports whether the principal identifies a user.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// ----------------------------------------------------------------------------
// Accounts

// User represents an account exposed by the application services. It never
// carries the password digest.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session tracks an issued token so it can be revoked.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// RegisterParams captures a self-service guest sign-up.
type RegisterParams struct {
	Email    string
	Password string
	Name     string
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Email    string
	Password string
}

// CreateStaffAccountParams captures an administrator creating an account
// with an explicit role.
type CreateStaffAccountParams struct {
	Principal Principal
	Email     string
	Password  string
	Name      string
	Role      string
}

// UpdateStaffAccountParams captures an administrator rewriting another
// account. AdminPassword is verified before anything changes.
type UpdateStaffAccountParams struct {
	Principal     Principal
	AdminID       string
	AdminPassword string
	TargetUserID  string
	Name          string
	Email         string
	Role          string
	NewPassword   *string
}

// DeleteAccountParams captures a password-confirmed account deletion.
type DeleteAccountParams struct {
	Principal Principal
	UserID    string
	Password  string
}

// UpdatePasswordParams captures a password change by the account owner.
type UpdatePasswordParams struct {
	Principal   Principal
	UserID      string
	OldPassword string
	NewPassword string
}

// BootstrapAdminParams captures the first administrator created from the CLI.
type BootstrapAdminParams struct {
	Email    string
	Password string
	Name     string
}

// ----------------------------------------------------------------------------
// Catalog

const (
	RoomStatusAvailable   = "available"
	RoomStatusOccupied    = "occupied"
	RoomStatusMaintenance = "maintenance"
)

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Number      string
	Type        string
	PriceCents  int64
	Capacity    int
	Amenities   []string
	Status      string
	Description string
}

// Room represents a bookable hotel room.
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

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// SetRoomStatusParams wraps a housekeeping status change.
type SetRoomStatusParams struct {
	Principal Principal
	RoomID    string
	Status    string
}

// Amenity is an entry of the amenity catalog.
type Amenity struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ServiceInput captures caller provided hotel service fields.
type ServiceInput struct {
	Name        string
	Description string
	PriceCents  int64
	Available   bool
	ImageURL    string
}

// Service is an extra offered by the hotel.
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

// CreateServiceParams wraps the data required to create a hotel service.
type CreateServiceParams struct {
	Principal Principal
	Input     ServiceInput
}

// UpdateServiceParams wraps the data required to update a hotel service.
type UpdateServiceParams struct {
	Principal Principal
	ServiceID string
	Input     ServiceInput
}

// ----------------------------------------------------------------------------
// Reservations

const (
	ReservationActive    = "active"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
)

// ChangeState summarises the change requests raised against a reservation.
type ChangeState string

const (
	ChangeNone     ChangeState = "none"
	ChangePending  ChangeState = "pending"
	ChangeRejected ChangeState = "rejected"
	ChangeApplied  ChangeState = "applied"
)

// Reservation is a stay of a user in a room. CheckIn and CheckOut are civil
// dates at midnight UTC.
type Reservation struct {
	ID          string
	UserID      string
	RoomID      string
	CheckIn     time.Time
	CheckOut    time.Time
	Guests      int
	Status      string
	TotalCents  int64
	ChangeState ChangeState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Nights returns the length of the stay.
func (r Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// StayChange lists the stay attributes to replace. Nil fields keep their
// current value.
type StayChange struct {
	RoomID   *string
	CheckIn  *time.Time
	CheckOut *time.Time
	Guests   *int
}

// Empty reports whether the change replaces nothing.
func (c StayChange) Empty() bool {
	return c.RoomID == nil && c.CheckIn == nil && c.CheckOut == nil && c.Guests == nil
}

// AvailabilityParams describes an availability query.
type AvailabilityParams struct {
	RoomID               string
	CheckIn              time.Time
	CheckOut             time.Time
	ExcludeReservationID string
}

// AvailabilityResult is the outcome of an availability query.
type AvailabilityResult struct {
	Available        bool
	ConflictingCount int
}

// CreateReservationParams wraps the data required to book a room. UserID
// defaults to the principal.
type CreateReservationParams struct {
	Principal     Principal
	UserID        string
	RoomID        string
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int
	PaymentMethod string
}

// EditReservationParams wraps a staff edit of an active reservation.
type EditReservationParams struct {
	Principal     Principal
	ReservationID string
	Change        StayChange
}

// ListReservationsParams narrows a reservation listing. Guests only ever
// see their own reservations.
type ListReservationsParams struct {
	Principal Principal
	UserID    string
	RoomID    string
	Status    string
}

// ReservationFilter narrows repository reservation queries.
type ReservationFilter struct {
	UserID string
	RoomID string
	Status string
}

// ----------------------------------------------------------------------------
// Payments

const (
	PaymentMethodCard     = "card"
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

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

// Booking groups the rows written atomically when a reservation is created.
type Booking struct {
	Reservation Reservation
	Payment     Payment
	RoomStatus  string
}

// ListPaymentsParams narrows a payment listing.
type ListPaymentsParams struct {
	Principal     Principal
	ReservationID string
	Status        string
}

// PaymentFilter narrows repository payment queries.
type PaymentFilter struct {
	UserID        string
	ReservationID string
	Status        string
}

// UpdatePaymentStatusParams wraps a staff payment status change.
type UpdatePaymentStatusParams struct {
	Principal Principal
	PaymentID string
	Status    string
}

// ----------------------------------------------------------------------------
// Inquiries and change requests

const (
	InquiryPending  = "pending"
	InquiryAnswered = "answered"
	InquiryClosed   = "closed"

	ResolutionNone     = ""
	ResolutionApproved = "approved"
	ResolutionRejected = "rejected"
)

// Inquiry is a support ticket. When ReservationID is set it is a change
// request carrying the proposed stay in Proposed.
type Inquiry struct {
	ID            string
	UserID        string
	ReservationID *string
	Subject       string
	Message       string
	Reply         *string
	Status        string
	Resolution    string
	Proposed      StayChange
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsChangeRequest reports whether the inquiry targets a reservation.
func (i Inquiry) IsChangeRequest() bool {
	return i.ReservationID != nil && *i.ReservationID != ""
}

// CreateInquiryParams wraps a new support ticket.
type CreateInquiryParams struct {
	Principal Principal
	Subject   string
	Message   string
}

// SubmitChangeRequestParams wraps a guest's request to change a reservation.
type SubmitChangeRequestParams struct {
	Principal     Principal
	ReservationID string
	Change        StayChange
	Note          string
}

// ResolveChangeRequestParams wraps an approval or rejection. Reply replaces
// the canned text when set.
type ResolveChangeRequestParams struct {
	Principal Principal
	InquiryID string
	Reply     *string
}

// ReplyInquiryParams wraps a staff reply. A nil Reply sends the drafted one.
type ReplyInquiryParams struct {
	Principal Principal
	InquiryID string
	Reply     *string
}

// ListInquiriesParams narrows an inquiry listing.
type ListInquiriesParams struct {
	Principal          Principal
	Status             string
	ChangeRequestsOnly bool
}

// InquiryFilter narrows repository inquiry queries. A non-nil empty
// ReservationIDs matches nothing.
type InquiryFilter struct {
	UserID             string
	Status             string
	ReservationIDs     []string
	ChangeRequestsOnly bool
}

// ----------------------------------------------------------------------------
// Statistics

// MonthlyRevenue is the completed payment total of one month (YYYY-MM).
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
	OccupancyRate         float64
}

// RevenueStatsParams bounds the statistics by creation time. Nil bounds are open.
type RevenueStatsParams struct {
	Principal Principal
	From      *time.Time
	To        *time.Time
}
