package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/hotel-booking/internal/availability"
	"github.com/example/hotel-booking/internal/events"
	"github.com/example/hotel-booking/internal/persistence"
)

var (
	testNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	testAdmin    = Principal{UserID: "admin-1", Role: RoleAdmin}
	testOperator = Principal{UserID: "operator-1", Role: RoleOperator}
	testGuest    = Principal{UserID: "guest-1", Role: RoleGuest}

	fastHasher = NewPasswordHasher(Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
)

func fixedNow() time.Time { return testNow }

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func date(value string) time.Time {
	t, err := availability.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

func mustHash(password string) string {
	digest, err := fastHasher(password)
	if err != nil {
		panic(err)
	}
	return digest
}

type userRepoStub struct {
	mu        sync.Mutex
	users     map[string]UserCredentials
	inUse     map[string]bool
	createErr error
	updateErr error
	listErr   error
	deleted   []string
}

func newUserRepoStub(users ...UserCredentials) *userRepoStub {
	r := &userRepoStub{users: map[string]UserCredentials{}, inUse: map[string]bool{}}
	for _, u := range users {
		r.users[u.User.ID] = u
	}
	return r
}

func (r *userRepoStub) CreateUser(ctx context.Context, creds UserCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.User.Email == creds.User.Email {
			return persistence.ErrDuplicate
		}
	}
	r.users[creds.User.ID] = creds
	return nil
}

func (r *userRepoStub) UpdateUser(ctx context.Context, creds UserCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.users[creds.User.ID]; !ok {
		return persistence.ErrNotFound
	}
	for id, u := range r.users {
		if id != creds.User.ID && u.User.Email == creds.User.Email {
			return persistence.ErrDuplicate
		}
	}
	r.users[creds.User.ID] = creds
	return nil
}

func (r *userRepoStub) GetUser(ctx context.Context, id string) (UserCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return UserCredentials{}, persistence.ErrNotFound
	}
	return u, nil
}

func (r *userRepoStub) GetUserByEmail(ctx context.Context, email string) (UserCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.User.Email == email {
			return u, nil
		}
	}
	return UserCredentials{}, persistence.ErrNotFound
}

func (r *userRepoStub) ListUsers(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepoStub) DeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return persistence.ErrNotFound
	}
	if r.inUse[id] {
		return persistence.ErrForeignKeyViolation
	}
	delete(r.users, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type sessionRepoStub struct {
	mu          sync.Mutex
	sessions    map[string]Session
	createErr   error
	deleteCalls []time.Time
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: map[string]Session{}}
}

func (r *sessionRepoStub) CreateSession(ctx context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *sessionRepoStub) GetSession(ctx context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return s, nil
}

func (r *sessionRepoStub) RevokeSession(ctx context.Context, id string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &revokedAt
	}
	r.sessions[id] = s
	return nil
}

func (r *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls = append(r.deleteCalls, reference)
	return nil
}

type roomRepoStub struct {
	mu        sync.Mutex
	rooms     map[string]Room
	createErr error
	deleteErr error
	updated   []Room
}

func newRoomRepoStub(rooms ...Room) *roomRepoStub {
	r := &roomRepoStub{rooms: map[string]Room{}}
	for _, room := range rooms {
		r.rooms[room.ID] = room
	}
	return r
}

func (r *roomRepoStub) CreateRoom(ctx context.Context, room Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.rooms[room.ID] = room
	return nil
}

func (r *roomRepoStub) GetRoom(ctx context.Context, id string) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (r *roomRepoStub) UpdateRoom(ctx context.Context, room Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.rooms[room.ID] = room
	r.updated = append(r.updated, room)
	return nil
}

func (r *roomRepoStub) DeleteRoom(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.rooms, id)
	return nil
}

func (r *roomRepoStub) ListRooms(ctx context.Context) ([]Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// reservationRepoStub mimics the guarded writes of the SQLite repository.
type reservationRepoStub struct {
	mu           sync.Mutex
	reservations map[string]Reservation
	payments     map[string]Payment
	rooms        *roomRepoStub
	inquiries    *inquiryRepoStub
	bookings     int
	updates      int
	createErr    error
}

func newReservationRepoStub(rooms *roomRepoStub, inquiries *inquiryRepoStub, existing ...Reservation) *reservationRepoStub {
	r := &reservationRepoStub{
		reservations: map[string]Reservation{},
		payments:     map[string]Payment{},
		rooms:        rooms,
		inquiries:    inquiries,
	}
	for _, res := range existing {
		r.reservations[res.ID] = res
	}
	return r
}

func (r *reservationRepoStub) GetReservation(ctx context.Context, id string) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return res, nil
}

func (r *reservationRepoStub) ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Reservation
	for _, res := range r.reservations {
		if filter.UserID != "" && res.UserID != filter.UserID {
			continue
		}
		if filter.RoomID != "" && res.RoomID != filter.RoomID {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.After(out[j].CheckIn) })
	return out, nil
}

func (r *reservationRepoStub) ListActiveReservationsForRoom(ctx context.Context, roomID string) ([]Reservation, error) {
	return r.ListReservations(ctx, ReservationFilter{RoomID: roomID, Status: ReservationActive})
}

func (r *reservationRepoStub) conflictLocked(res Reservation) bool {
	for _, other := range r.reservations {
		if other.ID == res.ID || other.RoomID != res.RoomID || other.Status != ReservationActive {
			continue
		}
		if availability.Overlaps(other.CheckIn, other.CheckOut, res.CheckIn, res.CheckOut) {
			return true
		}
	}
	return false
}

func (r *reservationRepoStub) CreateBooking(ctx context.Context, booking Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.conflictLocked(booking.Reservation) {
		return persistence.ErrConflict
	}
	r.reservations[booking.Reservation.ID] = booking.Reservation
	r.payments[booking.Payment.ID] = booking.Payment
	r.bookings++
	if r.rooms != nil && booking.RoomStatus != "" {
		room, err := r.rooms.GetRoom(ctx, booking.Reservation.RoomID)
		if err != nil {
			return err
		}
		room.Status = booking.RoomStatus
		return r.rooms.UpdateRoom(ctx, room)
	}
	return nil
}

func (r *reservationRepoStub) UpdateReservation(ctx context.Context, res Reservation, inquiry *Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.reservations[res.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if current.Status != ReservationActive {
		return persistence.ErrStaleState
	}
	if r.conflictLocked(res) {
		return persistence.ErrConflict
	}
	if inquiry != nil && r.inquiries != nil {
		stored, err := r.inquiries.GetInquiry(ctx, inquiry.ID)
		if err != nil {
			return err
		}
		if stored.Resolution != ResolutionNone {
			return persistence.ErrStaleState
		}
		if err := r.inquiries.UpdateInquiry(ctx, *inquiry); err != nil {
			return err
		}
	}
	r.reservations[res.ID] = res
	r.updates++
	return nil
}

func (r *reservationRepoStub) TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if res.Status != from {
		return persistence.ErrStaleState
	}
	res.Status = to
	res.UpdatedAt = at
	r.reservations[id] = res
	return nil
}

type inquiryRepoStub struct {
	mu        sync.Mutex
	inquiries map[string]Inquiry
	listCalls []InquiryFilter
}

func newInquiryRepoStub(existing ...Inquiry) *inquiryRepoStub {
	r := &inquiryRepoStub{inquiries: map[string]Inquiry{}}
	for _, inq := range existing {
		r.inquiries[inq.ID] = inq
	}
	return r
}

func (r *inquiryRepoStub) CreateInquiry(ctx context.Context, inquiry Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.inquiries[inquiry.ID]; dup {
		return persistence.ErrDuplicate
	}
	r.inquiries[inquiry.ID] = inquiry
	return nil
}

func (r *inquiryRepoStub) UpdateInquiry(ctx context.Context, inquiry Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inquiries[inquiry.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.inquiries[inquiry.ID] = inquiry
	return nil
}

func (r *inquiryRepoStub) GetInquiry(ctx context.Context, id string) (Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inq, ok := r.inquiries[id]
	if !ok {
		return Inquiry{}, persistence.ErrNotFound
	}
	return inq, nil
}

func (r *inquiryRepoStub) ListInquiries(ctx context.Context, filter InquiryFilter) ([]Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls = append(r.listCalls, filter)
	if filter.ReservationIDs != nil && len(filter.ReservationIDs) == 0 {
		return nil, nil
	}
	wanted := map[string]bool{}
	for _, id := range filter.ReservationIDs {
		wanted[id] = true
	}
	var out []Inquiry
	for _, inq := range r.inquiries {
		if filter.UserID != "" && inq.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && inq.Status != filter.Status {
			continue
		}
		if filter.ChangeRequestsOnly && !inq.IsChangeRequest() {
			continue
		}
		if len(wanted) > 0 && (!inq.IsChangeRequest() || !wanted[*inq.ReservationID]) {
			continue
		}
		out = append(out, inq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type paymentRepoStub struct {
	mu       sync.Mutex
	payments map[string]Payment
	filters  []PaymentFilter
}

func newPaymentRepoStub(payments ...Payment) *paymentRepoStub {
	r := &paymentRepoStub{payments: map[string]Payment{}}
	for _, p := range payments {
		r.payments[p.ID] = p
	}
	return r
}

func (r *paymentRepoStub) GetPayment(ctx context.Context, id string) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return Payment{}, persistence.ErrNotFound
	}
	return p, nil
}

func (r *paymentRepoStub) ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, filter)
	var out []Payment
	for _, p := range r.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepoStub) UpdatePaymentStatus(ctx context.Context, id, from, to string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if p.Status != from {
		return persistence.ErrStaleState
	}
	p.Status = to
	p.UpdatedAt = at
	r.payments[id] = p
	return nil
}

type publisherStub struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *publisherStub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
