package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/hotel-booking/internal/availability"
	"github.com/example/hotel-booking/internal/events"
	"github.com/example/hotel-booking/internal/lock"
	"github.com/example/hotel-booking/internal/metrics"
)

// ReservationRepository stores reservations and performs the guarded
// booking writes.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	ListActiveReservationsForRoom(ctx context.Context, roomID string) ([]Reservation, error)
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateReservation(ctx context.Context, reservation Reservation, inquiry *Inquiry) error
	TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error
}

// ReservationService books rooms and drives the reservation state machine.
type ReservationService struct {
	reservations ReservationRepository
	rooms        RoomRepository
	inquiries    InquiryRepository
	locker       lock.Locker
	publisher    events.Publisher
	location     *time.Location
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService wires dependencies for reservation operations. A nil
// locker falls back to an in-process one; a nil publisher drops events; a
// nil location means UTC.
func NewReservationService(reservations ReservationRepository, rooms RoomRepository, inquiries InquiryRepository, locker lock.Locker, publisher events.Publisher, location *time.Location, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, rooms, inquiries, locker, publisher, location, idGenerator, now, nil)
}

// NewReservationServiceWithLogger wires dependencies with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, rooms RoomRepository, inquiries InquiryRepository, locker lock.Locker, publisher events.Publisher, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if location == nil {
		location = time.UTC
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		rooms:        rooms,
		inquiries:    inquiries,
		locker:       locker,
		publisher:    publisher,
		location:     location,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

func (s *ReservationService) check() error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}
	return nil
}

// today is the current civil date in the hotel's time zone.
func (s *ReservationService) today() time.Time {
	return availability.Day(s.now().In(s.location))
}

// CheckAvailability reports whether the room is free over the range.
func (s *ReservationService) CheckAvailability(ctx context.Context, params AvailabilityParams) (result AvailabilityResult, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CheckAvailability",
		"room_id", params.RoomID,
		"check_in", availability.FormatDate(params.CheckIn),
		"check_out", availability.FormatDate(params.CheckOut),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("available", result.Available, "conflicting_count", result.ConflictingCount).
			DebugContext(ctx, "availability checked")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.RoomID) == "" {
		vErr.add("roomId", "room is required")
	}
	validateStayRange(vErr, params.CheckIn, params.CheckOut)
	if err = vErr.orNil(); err != nil {
		return
	}

	if _, err = s.rooms.GetRoom(ctx, params.RoomID); err != nil {
		err = mapRepoError(err)
		return
	}

	var checked availability.Result
	checked, err = s.availability(ctx, params.RoomID, params.CheckIn, params.CheckOut, params.ExcludeReservationID)
	if err != nil {
		return
	}

	metrics.ObserveAvailability(checked.Available)
	result = AvailabilityResult{Available: checked.Available, ConflictingCount: checked.ConflictingCount}
	return
}

func (s *ReservationService) availability(ctx context.Context, roomID string, checkIn, checkOut time.Time, exclude string) (availability.Result, error) {
	active, err := s.reservations.ListActiveReservationsForRoom(ctx, roomID)
	if err != nil {
		return availability.Result{}, mapRepoError(err)
	}
	stays := make([]availability.Stay, 0, len(active))
	for _, r := range active {
		stays = append(stays, availability.Stay{
			ReservationID: r.ID,
			RoomID:        r.RoomID,
			CheckIn:       r.CheckIn,
			CheckOut:      r.CheckOut,
			Active:        r.Status == ReservationActive,
		})
	}
	return availability.Check(stays, availability.Request{
		RoomID:               roomID,
		CheckIn:              checkIn,
		CheckOut:             checkOut,
		ExcludeReservationID: exclude,
	}), nil
}

// CreateReservation books a room. Guests book for themselves; staff may book
// for any user. The reservation, its pending payment and the room status are
// written in one transaction while the room lock is held.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if err = s.check(); err != nil {
		return
	}

	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		userID = params.Principal.UserID
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"principal_id", params.Principal.UserID,
		"user_id", userID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			if errors.Is(err, ErrRoomUnavailable) {
				metrics.ObserveReservation("conflict")
			}
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		metrics.ObserveReservation("created")
		logger.With("reservation_id", reservation.ID, "total_cents", reservation.TotalCents).
			InfoContext(ctx, "reservation created")
	}()

	if err = requireAuthenticated(params.Principal); err != nil {
		return
	}
	if userID != params.Principal.UserID && !params.Principal.IsStaff() {
		err = ErrForbidden
		return
	}

	checkIn := availability.Day(params.CheckIn)
	checkOut := availability.Day(params.CheckOut)

	method := strings.ToLower(strings.TrimSpace(params.PaymentMethod))
	if method == "" {
		method = PaymentMethodCard
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(params.RoomID) == "" {
		vErr.add("roomId", "room is required")
	}
	validateStayRange(vErr, params.CheckIn, params.CheckOut)
	if !params.CheckIn.IsZero() && checkIn.Before(s.today()) {
		vErr.add("checkIn", "check-in cannot be in the past")
	}
	if params.Guests < 1 {
		vErr.add("guests", "at least one guest is required")
	}
	if !validPaymentMethod(method) {
		vErr.add("paymentMethod", "payment method must be one of card, cash, transfer")
	}
	if err = vErr.orNil(); err != nil {
		return
	}

	var room Room
	room, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if params.Guests > room.Capacity {
		err = NewValidationError("guests", fmt.Sprintf("room %s holds at most %d guests", room.Number, room.Capacity))
		return
	}

	var unlock func()
	unlock, err = s.lockRooms(ctx, room.ID)
	if err != nil {
		return
	}
	defer unlock()

	var checked availability.Result
	checked, err = s.availability(ctx, room.ID, checkIn, checkOut, "")
	if err != nil {
		return
	}
	if !checked.Available {
		err = ErrRoomUnavailable
		return
	}

	now := s.now()
	candidate := Reservation{
		ID:          s.idGenerator(),
		UserID:      userID,
		RoomID:      room.ID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      params.Guests,
		Status:      ReservationActive,
		TotalCents:  stayTotal(room, checkIn, checkOut),
		ChangeState: ChangeNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	payment := Payment{
		ID:            s.idGenerator(),
		ReservationID: candidate.ID,
		AmountCents:   candidate.TotalCents,
		Method:        method,
		Status:        PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.reservations.CreateBooking(ctx, Booking{
		Reservation: candidate,
		Payment:     payment,
		RoomStatus:  RoomStatusOccupied,
	})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	reservation = candidate
	s.publish(ctx, events.ReservationCreated, reservation, room.Number, "")
	return
}

// EditReservation changes room, dates or guest count of an active
// reservation. Staff only.
func (s *ReservationService) EditReservation(ctx context.Context, params EditReservationParams) (reservation Reservation, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "EditReservation",
		"principal_id", params.Principal.UserID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		metrics.ObserveReservation("updated")
		logger.With("room_id", reservation.RoomID, "total_cents", reservation.TotalCents).
			InfoContext(ctx, "reservation edited")
	}()

	if err = requireStaff(params.Principal); err != nil {
		return
	}
	if params.Change.Empty() {
		err = NewValidationError("reservation", "no changes requested")
		return
	}

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var room Room
	reservation, room, err = s.applyChange(ctx, existing, params.Change, nil)
	if err != nil {
		return
	}

	s.publish(ctx, events.ReservationUpdated, reservation, room.Number, "")
	return
}

// applyChange merges change into an active reservation, validates it against
// the target room and persists it together with inquiry under the lock of
// every room involved.
func (s *ReservationService) applyChange(ctx context.Context, existing Reservation, change StayChange, inquiry *Inquiry) (Reservation, Room, error) {
	if existing.Status != ReservationActive {
		return Reservation{}, Room{}, ErrInvalidTransition
	}

	merged := existing
	if change.RoomID != nil {
		merged.RoomID = strings.TrimSpace(*change.RoomID)
	}
	if change.CheckIn != nil {
		merged.CheckIn = availability.Day(*change.CheckIn)
	}
	if change.CheckOut != nil {
		merged.CheckOut = availability.Day(*change.CheckOut)
	}
	if change.Guests != nil {
		merged.Guests = *change.Guests
	}

	vErr := &ValidationError{}
	if merged.RoomID == "" {
		vErr.add("roomId", "room is required")
	}
	validateStayRange(vErr, merged.CheckIn, merged.CheckOut)
	if change.CheckIn != nil && merged.CheckIn.Before(s.today()) {
		vErr.add("checkIn", "check-in cannot be in the past")
	}
	if merged.Guests < 1 {
		vErr.add("guests", "at least one guest is required")
	}
	if err := vErr.orNil(); err != nil {
		return Reservation{}, Room{}, err
	}

	room, err := s.rooms.GetRoom(ctx, merged.RoomID)
	if err != nil {
		return Reservation{}, Room{}, mapRepoError(err)
	}
	if merged.Guests > room.Capacity {
		return Reservation{}, Room{}, NewValidationError("guests", fmt.Sprintf("room %s holds at most %d guests", room.Number, room.Capacity))
	}

	unlock, err := s.lockRooms(ctx, existing.RoomID, merged.RoomID)
	if err != nil {
		return Reservation{}, Room{}, err
	}
	defer unlock()

	checked, err := s.availability(ctx, merged.RoomID, merged.CheckIn, merged.CheckOut, existing.ID)
	if err != nil {
		return Reservation{}, Room{}, err
	}
	if !checked.Available {
		return Reservation{}, Room{}, ErrRoomUnavailable
	}

	merged.TotalCents = stayTotal(room, merged.CheckIn, merged.CheckOut)
	merged.UpdatedAt = s.now()

	if err := s.reservations.UpdateReservation(ctx, merged, inquiry); err != nil {
		return Reservation{}, Room{}, mapReservationRepoError(err)
	}
	return merged, room, nil
}

// CancelReservation cancels an active reservation. Owners and staff only.
func (s *ReservationService) CancelReservation(ctx context.Context, principal Principal, reservationID string) (Reservation, error) {
	return s.transition(ctx, "CancelReservation", principal, reservationID, ReservationCancelled, false)
}

// CompleteReservation marks an active reservation as completed. Staff only.
func (s *ReservationService) CompleteReservation(ctx context.Context, principal Principal, reservationID string) (Reservation, error) {
	return s.transition(ctx, "CompleteReservation", principal, reservationID, ReservationCompleted, true)
}

func (s *ReservationService) transition(ctx context.Context, operation string, principal Principal, reservationID, to string, staffOnly bool) (reservation Reservation, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, operation,
		"principal_id", principal.UserID,
		"reservation_id", reservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change reservation status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		metrics.ObserveReservation(to)
		logger.With("status", to).InfoContext(ctx, "reservation status changed")
	}()

	if staffOnly {
		err = requireStaff(principal)
	} else {
		err = requireAuthenticated(principal)
	}
	if err != nil {
		return
	}

	reservation, err = s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !principal.IsStaff() && reservation.UserID != principal.UserID {
		reservation = Reservation{}
		err = ErrForbidden
		return
	}
	if reservation.Status != ReservationActive {
		reservation = Reservation{}
		err = ErrInvalidTransition
		return
	}

	now := s.now()
	if err = s.reservations.TransitionReservation(ctx, reservationID, ReservationActive, to, now); err != nil {
		reservation = Reservation{}
		err = mapReservationRepoError(err)
		return
	}
	reservation.Status = to
	reservation.UpdatedAt = now

	eventType := events.ReservationCancelled
	if to == ReservationCompleted {
		eventType = events.ReservationCompleted
	}
	s.publish(ctx, eventType, reservation, "", "")
	return
}

// GetReservation returns a reservation with its change-request state. Guests
// can only read their own.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, reservationID string) (reservation Reservation, err error) {
	if err = s.check(); err != nil {
		return
	}
	if err = requireAuthenticated(principal); err != nil {
		return
	}

	reservation, err = s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !principal.IsStaff() && reservation.UserID != principal.UserID {
		return Reservation{}, ErrForbidden
	}

	list := []Reservation{reservation}
	if err = s.attachChangeStates(ctx, list); err != nil {
		return Reservation{}, err
	}
	return list[0], nil
}

// ListReservations returns reservations newest stay first. Guests only see
// their own.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListReservations", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).DebugContext(ctx, "reservations listed")
	}()

	if err = requireAuthenticated(params.Principal); err != nil {
		return
	}

	filter := ReservationFilter{
		UserID: strings.TrimSpace(params.UserID),
		RoomID: strings.TrimSpace(params.RoomID),
		Status: strings.TrimSpace(params.Status),
	}
	if !params.Principal.IsStaff() {
		filter.UserID = params.Principal.UserID
	}
	if filter.Status != "" && !validReservationStatus(filter.Status) {
		err = NewValidationError("status", "status must be one of active, completed, cancelled")
		return
	}

	reservations, err = s.reservations.ListReservations(ctx, filter)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	err = s.attachChangeStates(ctx, reservations)
	return
}

// attachChangeStates derives ChangeState from the change requests linked to
// each reservation.
func (s *ReservationService) attachChangeStates(ctx context.Context, reservations []Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	for i := range reservations {
		reservations[i].ChangeState = ChangeNone
	}
	if s.inquiries == nil {
		return nil
	}

	ids := make([]string, 0, len(reservations))
	for _, r := range reservations {
		ids = append(ids, r.ID)
	}
	requests, err := s.inquiries.ListInquiries(ctx, InquiryFilter{ReservationIDs: ids, ChangeRequestsOnly: true})
	if err != nil {
		return mapRepoError(err)
	}

	byReservation := make(map[string][]Inquiry, len(reservations))
	for _, inq := range requests {
		if !inq.IsChangeRequest() {
			continue
		}
		byReservation[*inq.ReservationID] = append(byReservation[*inq.ReservationID], inq)
	}
	for i := range reservations {
		reservations[i].ChangeState = deriveChangeState(byReservation[reservations[i].ID])
	}
	return nil
}

// deriveChangeState is pending while any request is unresolved, otherwise
// the resolution of the most recently resolved request.
func deriveChangeState(requests []Inquiry) ChangeState {
	if len(requests) == 0 {
		return ChangeNone
	}
	var latest *Inquiry
	for i := range requests {
		req := &requests[i]
		if req.Resolution == ResolutionNone {
			return ChangePending
		}
		if latest == nil || req.UpdatedAt.After(latest.UpdatedAt) {
			latest = req
		}
	}
	if latest.Resolution == ResolutionApproved {
		return ChangeApplied
	}
	return ChangeRejected
}

// lockRooms takes the booking lock of every distinct room in a fixed order.
func (s *ReservationService) lockRooms(ctx context.Context, roomIDs ...string) (func(), error) {
	keys := make([]string, 0, len(roomIDs))
	seen := make(map[string]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, "room:"+id)
	}
	sort.Strings(keys)

	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, mapRepoError(err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// publish sends an event after the write committed. Failures are logged only.
func (s *ReservationService) publish(ctx context.Context, eventType string, r Reservation, roomNumber, inquiryID string) {
	event := events.Event{
		Type:          eventType,
		ReservationID: r.ID,
		UserID:        r.UserID,
		RoomID:        r.RoomID,
		RoomNumber:    roomNumber,
		CheckIn:       availability.FormatDate(r.CheckIn),
		CheckOut:      availability.FormatDate(r.CheckOut),
		Guests:        r.Guests,
		Status:        r.Status,
		TotalCents:    r.TotalCents,
		InquiryID:     inquiryID,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.loggerWith(ctx, "publish", "event_type", eventType, "reservation_id", r.ID).
			WarnContext(ctx, "failed to publish event", "error", err)
	}
}

func validateStayRange(vErr *ValidationError, checkIn, checkOut time.Time) {
	if checkIn.IsZero() {
		vErr.add("checkIn", "check-in is required")
	}
	if checkOut.IsZero() {
		vErr.add("checkOut", "check-out is required")
	}
	if !checkIn.IsZero() && !checkOut.IsZero() && !availability.Day(checkOut).After(availability.Day(checkIn)) {
		vErr.add("checkOut", "check-out must be after check-in")
	}
}

func stayTotal(room Room, checkIn, checkOut time.Time) int64 {
	return int64(availability.Nights(checkIn, checkOut)) * room.PriceCents
}

func validPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodTransfer:
		return true
	}
	return false
}

func validReservationStatus(status string) bool {
	switch status {
	case ReservationActive, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

func mapReservationRepoError(err error) error {
	mapped := mapRepoError(err)
	if errors.Is(mapped, ErrInUse) {
		return NewValidationError("reservation", "user or room does not exist")
	}
	return mapped
}
