package main

import (
	"context"
	"time"

	"github.com/example/hotel-booking/internal/application"
	"github.com/example/hotel-booking/internal/persistence"
)

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) error {
	return a.repo.CreateUser(ctx, toPersistenceUser(creds))
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, creds application.UserCredentials) error {
	return a.repo.UpdateUser(ctx, toPersistenceUser(creds))
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toApplicationCredentials(stored), nil
}

func (a *userRepositoryAdapter) GetUserByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toApplicationCredentials(stored), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationUser), nil
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) error {
	return a.repo.CreateSession(ctx, persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	})
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session{
		ID:        stored.ID,
		UserID:    stored.UserID,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
		RevokedAt: cloneTime(stored.RevokedAt),
	}, nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, id string, revokedAt time.Time) error {
	return a.repo.RevokeSession(ctx, id, revokedAt)
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) error {
	return a.repo.CreateRoom(ctx, toPersistenceRoom(room))
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) error {
	return a.repo.UpdateRoom(ctx, toPersistenceRoom(room))
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationRoom), nil
}

type catalogRepositoryAdapter struct {
	amenities persistence.AmenityRepository
	services  persistence.ServiceRepository
}

func newCatalogRepositoryAdapter(amenities persistence.AmenityRepository, services persistence.ServiceRepository) *catalogRepositoryAdapter {
	return &catalogRepositoryAdapter{amenities: amenities, services: services}
}

func (a *catalogRepositoryAdapter) CreateAmenity(ctx context.Context, amenity application.Amenity) error {
	return a.amenities.CreateAmenity(ctx, persistence.Amenity{ID: amenity.ID, Name: amenity.Name, CreatedAt: amenity.CreatedAt})
}

func (a *catalogRepositoryAdapter) ListAmenities(ctx context.Context) ([]application.Amenity, error) {
	models, err := a.amenities.ListAmenities(ctx)
	if err != nil {
		return nil, err
	}
	return convertAll(models, func(m persistence.Amenity) application.Amenity {
		return application.Amenity{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt}
	}), nil
}

func (a *catalogRepositoryAdapter) CreateService(ctx context.Context, service application.Service) error {
	return a.services.CreateService(ctx, toPersistenceService(service))
}

func (a *catalogRepositoryAdapter) UpdateService(ctx context.Context, service application.Service) error {
	return a.services.UpdateService(ctx, toPersistenceService(service))
}

func (a *catalogRepositoryAdapter) GetService(ctx context.Context, id string) (application.Service, error) {
	stored, err := a.services.GetService(ctx, id)
	if err != nil {
		return application.Service{}, err
	}
	return toApplicationService(stored), nil
}

func (a *catalogRepositoryAdapter) ListServices(ctx context.Context, onlyAvailable bool) ([]application.Service, error) {
	models, err := a.services.ListServices(ctx, onlyAvailable)
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationService), nil
}

func (a *catalogRepositoryAdapter) DeleteService(ctx context.Context, id string) error {
	return a.services.DeleteService(ctx, id)
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		UserID: filter.UserID,
		RoomID: filter.RoomID,
		Status: filter.Status,
	})
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationReservation), nil
}

func (a *reservationRepositoryAdapter) ListActiveReservationsForRoom(ctx context.Context, roomID string) ([]application.Reservation, error) {
	models, err := a.repo.ListActiveReservationsForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationReservation), nil
}

func (a *reservationRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking) error {
	return a.repo.CreateBooking(ctx, persistence.Booking{
		Reservation: toPersistenceReservation(booking.Reservation),
		Payment:     toPersistencePayment(booking.Payment),
		RoomStatus:  booking.RoomStatus,
	})
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation, inquiry *application.Inquiry) error {
	var stored *persistence.Inquiry
	if inquiry != nil {
		converted := toPersistenceInquiry(*inquiry)
		stored = &converted
	}
	return a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation), stored)
}

func (a *reservationRepositoryAdapter) TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error {
	return a.repo.TransitionReservation(ctx, id, from, to, at)
}

type paymentRepositoryAdapter struct {
	repo persistence.PaymentRepository
}

func newPaymentRepositoryAdapter(repo persistence.PaymentRepository) *paymentRepositoryAdapter {
	return &paymentRepositoryAdapter{repo: repo}
}

func (a *paymentRepositoryAdapter) GetPayment(ctx context.Context, id string) (application.Payment, error) {
	stored, err := a.repo.GetPayment(ctx, id)
	if err != nil {
		return application.Payment{}, err
	}
	return toApplicationPayment(stored), nil
}

func (a *paymentRepositoryAdapter) ListPayments(ctx context.Context, filter application.PaymentFilter) ([]application.Payment, error) {
	models, err := a.repo.ListPayments(ctx, persistence.PaymentFilter{
		UserID:        filter.UserID,
		ReservationID: filter.ReservationID,
		Status:        filter.Status,
	})
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationPayment), nil
}

func (a *paymentRepositoryAdapter) UpdatePaymentStatus(ctx context.Context, id, from, to string, at time.Time) error {
	return a.repo.UpdatePaymentStatus(ctx, id, from, to, at)
}

type inquiryRepositoryAdapter struct {
	repo persistence.InquiryRepository
}

func newInquiryRepositoryAdapter(repo persistence.InquiryRepository) *inquiryRepositoryAdapter {
	return &inquiryRepositoryAdapter{repo: repo}
}

func (a *inquiryRepositoryAdapter) CreateInquiry(ctx context.Context, inquiry application.Inquiry) error {
	return a.repo.CreateInquiry(ctx, toPersistenceInquiry(inquiry))
}

func (a *inquiryRepositoryAdapter) UpdateInquiry(ctx context.Context, inquiry application.Inquiry) error {
	return a.repo.UpdateInquiry(ctx, toPersistenceInquiry(inquiry))
}

func (a *inquiryRepositoryAdapter) GetInquiry(ctx context.Context, id string) (application.Inquiry, error) {
	stored, err := a.repo.GetInquiry(ctx, id)
	if err != nil {
		return application.Inquiry{}, err
	}
	return toApplicationInquiry(stored), nil
}

func (a *inquiryRepositoryAdapter) ListInquiries(ctx context.Context, filter application.InquiryFilter) ([]application.Inquiry, error) {
	var reservationIDs []string
	if filter.ReservationIDs != nil {
		reservationIDs = append([]string{}, filter.ReservationIDs...)
	}
	models, err := a.repo.ListInquiries(ctx, persistence.InquiryFilter{
		UserID:             filter.UserID,
		Status:             filter.Status,
		ReservationIDs:     reservationIDs,
		ChangeRequestsOnly: filter.ChangeRequestsOnly,
	})
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationInquiry), nil
}

type statsRepositoryAdapter struct {
	repo persistence.StatsRepository
}

func newStatsRepositoryAdapter(repo persistence.StatsRepository) *statsRepositoryAdapter {
	return &statsRepositoryAdapter{repo: repo}
}

func (a *statsRepositoryAdapter) RevenueStats(ctx context.Context, from, to *time.Time) (application.RevenueStats, error) {
	stored, err := a.repo.RevenueStats(ctx, from, to)
	if err != nil {
		return application.RevenueStats{}, err
	}
	return application.RevenueStats{
		CompletedRevenueCents: stored.CompletedRevenueCents,
		PendingRevenueCents:   stored.PendingRevenueCents,
		ReservationsByStatus:  stored.ReservationsByStatus,
		MonthlyRevenue: convertAll(stored.MonthlyRevenue, func(m persistence.MonthlyRevenue) application.MonthlyRevenue {
			return application.MonthlyRevenue{Month: m.Month, AmountCents: m.AmountCents}
		}),
		RoomsByStatus: stored.RoomsByStatus,
		TotalRooms:    stored.TotalRooms,
	}, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		Name:      model.Name,
		Role:      application.Role(model.Role),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toApplicationCredentials(model persistence.User) application.UserCredentials {
	return application.UserCredentials{User: toApplicationUser(model), PasswordHash: model.PasswordHash}
}

func toPersistenceUser(creds application.UserCredentials) persistence.User {
	return persistence.User{
		ID:           creds.User.ID,
		Email:        creds.User.Email,
		Name:         creds.User.Name,
		PasswordHash: creds.PasswordHash,
		Role:         string(creds.User.Role),
		CreatedAt:    creds.User.CreatedAt,
		UpdatedAt:    creds.User.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:          model.ID,
		Number:      model.Number,
		Type:        model.Type,
		PriceCents:  model.PriceCents,
		Capacity:    model.Capacity,
		Amenities:   append([]string(nil), model.Amenities...),
		Status:      model.Status,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:          room.ID,
		Number:      room.Number,
		Type:        room.Type,
		PriceCents:  room.PriceCents,
		Capacity:    room.Capacity,
		Amenities:   append([]string(nil), room.Amenities...),
		Status:      room.Status,
		Description: room.Description,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

func toApplicationService(model persistence.Service) application.Service {
	return application.Service{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		PriceCents:  model.PriceCents,
		Available:   model.Available,
		ImageURL:    model.ImageURL,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceService(service application.Service) persistence.Service {
	return persistence.Service{
		ID:          service.ID,
		Name:        service.Name,
		Description: service.Description,
		PriceCents:  service.PriceCents,
		Available:   service.Available,
		ImageURL:    service.ImageURL,
		CreatedAt:   service.CreatedAt,
		UpdatedAt:   service.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:         model.ID,
		UserID:     model.UserID,
		RoomID:     model.RoomID,
		CheckIn:    model.CheckIn,
		CheckOut:   model.CheckOut,
		Guests:     model.Guests,
		Status:     model.Status,
		TotalCents: model.TotalCents,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceReservation(res application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:         res.ID,
		UserID:     res.UserID,
		RoomID:     res.RoomID,
		CheckIn:    res.CheckIn,
		CheckOut:   res.CheckOut,
		Guests:     res.Guests,
		Status:     res.Status,
		TotalCents: res.TotalCents,
		CreatedAt:  res.CreatedAt,
		UpdatedAt:  res.UpdatedAt,
	}
}

func toApplicationPayment(model persistence.Payment) application.Payment {
	return application.Payment{
		ID:            model.ID,
		ReservationID: model.ReservationID,
		AmountCents:   model.AmountCents,
		Method:        model.Method,
		Status:        model.Status,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistencePayment(payment application.Payment) persistence.Payment {
	return persistence.Payment{
		ID:            payment.ID,
		ReservationID: payment.ReservationID,
		AmountCents:   payment.AmountCents,
		Method:        payment.Method,
		Status:        payment.Status,
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
}

func toApplicationInquiry(model persistence.Inquiry) application.Inquiry {
	return application.Inquiry{
		ID:            model.ID,
		UserID:        model.UserID,
		ReservationID: cloneString(model.ReservationID),
		Subject:       model.Subject,
		Message:       model.Message,
		Reply:         cloneString(model.Reply),
		Status:        model.Status,
		Resolution:    model.Resolution,
		Proposed: application.StayChange{
			RoomID:   cloneString(model.ProposedRoomID),
			CheckIn:  cloneTime(model.ProposedCheckIn),
			CheckOut: cloneTime(model.ProposedCheckOut),
			Guests:   cloneInt(model.ProposedGuests),
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceInquiry(inquiry application.Inquiry) persistence.Inquiry {
	return persistence.Inquiry{
		ID:               inquiry.ID,
		UserID:           inquiry.UserID,
		ReservationID:    cloneString(inquiry.ReservationID),
		Subject:          inquiry.Subject,
		Message:          inquiry.Message,
		Reply:            cloneString(inquiry.Reply),
		Status:           inquiry.Status,
		Resolution:       inquiry.Resolution,
		ProposedRoomID:   cloneString(inquiry.Proposed.RoomID),
		ProposedCheckIn:  cloneTime(inquiry.Proposed.CheckIn),
		ProposedCheckOut: cloneTime(inquiry.Proposed.CheckOut),
		ProposedGuests:   cloneInt(inquiry.Proposed.Guests),
		CreatedAt:        inquiry.CreatedAt,
		UpdatedAt:        inquiry.UpdatedAt,
	}
}

// convertAll maps a repository result, returning nil for an empty one.
func convertAll[M, A any](models []M, convert func(M) A) []A {
	if len(models) == 0 {
		return nil
	}
	out := make([]A, 0, len(models))
	for _, model := range models {
		out = append(out, convert(model))
	}
	return out
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
