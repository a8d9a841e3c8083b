package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/hotel-booking/internal/application"
)

type reservationService interface {
	CheckAvailability(ctx context.Context, params application.AvailabilityParams) (application.AvailabilityResult, error)
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	EditReservation(ctx context.Context, params application.EditReservationParams) (application.Reservation, error)
	CancelReservation(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	CompleteReservation(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	GetReservation(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	SubmitChangeRequest(ctx context.Context, params application.SubmitChangeRequestParams) (application.Inquiry, error)
}

// ReservationHandler serves availability checks, bookings and change
// request submission.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

type availabilityRequest struct {
	RoomID               string `json:"roomId"`
	CheckIn              string `json:"checkIn"`
	CheckOut             string `json:"checkOut"`
	ExcludeReservationID string `json:"excludeReservationId"`
}

type availabilityDTO struct {
	Available        bool `json:"available"`
	ConflictingCount int  `json:"conflictingCount"`
}

// CheckAvailability handles POST /check-room-availability.
func (h *ReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	vErr := &application.ValidationError{}
	checkIn := requireDateField(vErr, "checkIn", req.CheckIn)
	checkOut := requireDateField(vErr, "checkOut", req.CheckOut)
	if err := validationOrNil(vErr); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.CheckAvailability(r.Context(), application.AvailabilityParams{
		RoomID:               req.RoomID,
		CheckIn:              checkIn,
		CheckOut:             checkOut,
		ExcludeReservationID: req.ExcludeReservationID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeData(r.Context(), w, http.StatusOK, availabilityDTO{
		Available:        result.Available,
		ConflictingCount: result.ConflictingCount,
	})
}

// List handles GET /reservations with optional userId, roomId and status
// query filters.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	reservations, err := h.service.ListReservations(r.Context(), application.ListReservationsParams{
		Principal: principal,
		UserID:    query.Get("userId"),
		RoomID:    query.Get("roomId"),
		Status:    query.Get("status"),
	})
	if err != nil {
		h.log(r.Context(), "List", "principal_id", principal.UserID).WarnContext(r.Context(), "reservation list failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, mapSlice(reservations, toReservationDTO))
}

// Get handles GET /reservations/{id}.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.GetReservation(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

type createReservationRequest struct {
	UserID        string `json:"userId"`
	RoomID        string `json:"roomId"`
	CheckIn       string `json:"checkIn"`
	CheckOut      string `json:"checkOut"`
	Guests        int    `json:"guests"`
	PaymentMethod string `json:"paymentMethod"`
}

// Create handles POST /reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	vErr := &application.ValidationError{}
	checkIn := requireDateField(vErr, "checkIn", req.CheckIn)
	checkOut := requireDateField(vErr, "checkOut", req.CheckOut)
	if err := validationOrNil(vErr); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "room_id", req.RoomID)
	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal:     principal,
		UserID:        req.UserID,
		RoomID:        req.RoomID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        req.Guests,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeData(r.Context(), w, http.StatusCreated, toReservationDTO(reservation))
}

// Edit handles PUT /reservations/{id}.
func (h *ReservationHandler) Edit(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	reservationID := r.PathValue("id")

	var req stayChangeDTO
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	change, err := req.toChange()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Edit", "principal_id", principal.UserID, "reservation_id", reservationID)
	reservation, err := h.service.EditReservation(r.Context(), application.EditReservationParams{
		Principal:     principal,
		ReservationID: reservationID,
		Change:        change,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation edit failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation edited")
	h.responder.writeData(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

// Cancel handles POST /reservations/{id}/cancel.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Cancel", h.service.CancelReservation)
}

// Complete handles POST /reservations/{id}/complete.
func (h *ReservationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Complete", h.service.CompleteReservation)
}

func (h *ReservationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	apply func(context.Context, application.Principal, string) (application.Reservation, error),
) {
	principal, _ := PrincipalFromContext(r.Context())
	reservationID := r.PathValue("id")

	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "reservation_id", reservationID)
	reservation, err := apply(r.Context(), principal, reservationID)
	if err != nil {
		logger.WarnContext(r.Context(), "reservation transition failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", reservation.Status).InfoContext(r.Context(), "reservation transitioned")
	h.responder.writeData(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

type changeRequestRequest struct {
	stayChangeDTO
	Note string `json:"note"`
}

// SubmitChangeRequest handles POST /reservations/{id}/change-requests.
func (h *ReservationHandler) SubmitChangeRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	reservationID := r.PathValue("id")

	var req changeRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	change, err := req.toChange()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "SubmitChangeRequest", "principal_id", principal.UserID, "reservation_id", reservationID)
	inquiry, err := h.service.SubmitChangeRequest(r.Context(), application.SubmitChangeRequestParams{
		Principal:     principal,
		ReservationID: reservationID,
		Change:        change,
		Note:          req.Note,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "change request failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("inquiry_id", inquiry.ID).InfoContext(r.Context(), "change request submitted")
	h.responder.writeData(r.Context(), w, http.StatusCreated, toInquiryDTO(inquiry))
}
