package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/hotel-booking/internal/availability"
	"github.com/example/hotel-booking/internal/events"
	"github.com/example/hotel-booking/internal/metrics"
)

const (
	approvedReply = "Your change request has been approved and your reservation was updated."
	rejectedReply = "We are sorry, your change request could not be accommodated."
)

// SubmitChangeRequest records a guest's request to change their own active
// reservation. Nothing about the reservation changes until staff approve it.
func (s *ReservationService) SubmitChangeRequest(ctx context.Context, params SubmitChangeRequestParams) (inquiry Inquiry, err error) {
	if err = s.check(); err != nil {
		return
	}
	if s.inquiries == nil {
		err = fmt.Errorf("inquiry repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SubmitChangeRequest",
		"principal_id", params.Principal.UserID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit change request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("inquiry_id", inquiry.ID).InfoContext(ctx, "change request submitted")
	}()

	if err = requireAuthenticated(params.Principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	if params.Change.Empty() {
		vErr.add("change", "at least one change is required")
	}
	if params.Change.RoomID != nil && strings.TrimSpace(*params.Change.RoomID) == "" {
		vErr.add("roomId", "room cannot be blank")
	}
	if params.Change.Guests != nil && *params.Change.Guests < 1 {
		vErr.add("guests", "at least one guest is required")
	}
	if params.Change.CheckIn != nil && params.Change.CheckOut != nil {
		validateStayRange(vErr, *params.Change.CheckIn, *params.Change.CheckOut)
	}
	if err = vErr.orNil(); err != nil {
		return
	}

	var reservation Reservation
	reservation, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if reservation.UserID != params.Principal.UserID {
		err = ErrForbidden
		return
	}
	if reservation.Status != ReservationActive {
		err = ErrInvalidTransition
		return
	}

	proposed := normalizeStayChange(params.Change)
	now := s.now()
	reservationID := reservation.ID
	inquiry = Inquiry{
		ID:            s.idGenerator(),
		UserID:        params.Principal.UserID,
		ReservationID: &reservationID,
		Subject:       "Change request for reservation " + reservation.ID,
		Message:       changeRequestMessage(proposed, params.Note),
		Status:        InquiryPending,
		Resolution:    ResolutionNone,
		Proposed:      proposed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = s.inquiries.CreateInquiry(ctx, inquiry); err != nil {
		inquiry = Inquiry{}
		err = mapReservationRepoError(err)
	}
	return
}

// ApproveChangeRequest applies the proposal with the same rules as
// EditReservation. The reservation and the answered inquiry are written in
// one transaction.
func (s *ReservationService) ApproveChangeRequest(ctx context.Context, params ResolveChangeRequestParams) (reservation Reservation, inquiry Inquiry, err error) {
	if err = s.check(); err != nil {
		return
	}
	if s.inquiries == nil {
		err = fmt.Errorf("inquiry repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ApproveChangeRequest",
		"principal_id", params.Principal.UserID,
		"inquiry_id", params.InquiryID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve change request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		metrics.ObserveReservation("change_approved")
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "change request approved")
	}()

	if err = requireStaff(params.Principal); err != nil {
		return
	}

	var pending Inquiry
	pending, err = s.unresolvedChangeRequest(ctx, params.InquiryID)
	if err != nil {
		return
	}

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, *pending.ReservationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	answered := pending
	answered.Reply = replyOrDefault(params.Reply, approvedReply)
	answered.Status = InquiryAnswered
	answered.Resolution = ResolutionApproved
	answered.UpdatedAt = s.now()

	var room Room
	reservation, room, err = s.applyChange(ctx, existing, pending.Proposed, &answered)
	if err != nil {
		reservation = Reservation{}
		return
	}
	reservation.ChangeState = ChangeApplied
	inquiry = answered

	s.publish(ctx, events.ChangeRequestApproved, reservation, room.Number, inquiry.ID)
	return
}

// RejectChangeRequest drafts the rejection. The inquiry stays pending until
// staff send the reply with ReplyInquiry.
func (s *ReservationService) RejectChangeRequest(ctx context.Context, params ResolveChangeRequestParams) (inquiry Inquiry, err error) {
	if err = s.check(); err != nil {
		return
	}
	if s.inquiries == nil {
		err = fmt.Errorf("inquiry repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RejectChangeRequest",
		"principal_id", params.Principal.UserID,
		"inquiry_id", params.InquiryID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reject change request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "change request rejected")
	}()

	if err = requireStaff(params.Principal); err != nil {
		return
	}

	inquiry, err = s.unresolvedChangeRequest(ctx, params.InquiryID)
	if err != nil {
		return
	}

	inquiry.Reply = replyOrDefault(params.Reply, rejectedReply)
	inquiry.Resolution = ResolutionRejected
	inquiry.UpdatedAt = s.now()

	if err = s.inquiries.UpdateInquiry(ctx, inquiry); err != nil {
		inquiry = Inquiry{}
		err = mapRepoError(err)
	}
	return
}

func (s *ReservationService) unresolvedChangeRequest(ctx context.Context, inquiryID string) (Inquiry, error) {
	inquiry, err := s.inquiries.GetInquiry(ctx, inquiryID)
	if err != nil {
		return Inquiry{}, mapRepoError(err)
	}
	if !inquiry.IsChangeRequest() {
		return Inquiry{}, NewValidationError("inquiryId", "inquiry is not a change request")
	}
	if inquiry.Resolution != ResolutionNone || inquiry.Status == InquiryClosed {
		return Inquiry{}, ErrInvalidTransition
	}
	return inquiry, nil
}

func normalizeStayChange(change StayChange) StayChange {
	if change.RoomID != nil {
		id := strings.TrimSpace(*change.RoomID)
		change.RoomID = &id
	}
	if change.CheckIn != nil {
		d := availability.Day(*change.CheckIn)
		change.CheckIn = &d
	}
	if change.CheckOut != nil {
		d := availability.Day(*change.CheckOut)
		change.CheckOut = &d
	}
	return change
}

func changeRequestMessage(change StayChange, note string) string {
	var parts []string
	if change.RoomID != nil {
		parts = append(parts, "room: "+*change.RoomID)
	}
	if change.CheckIn != nil {
		parts = append(parts, "check-in: "+availability.FormatDate(*change.CheckIn))
	}
	if change.CheckOut != nil {
		parts = append(parts, "check-out: "+availability.FormatDate(*change.CheckOut))
	}
	if change.Guests != nil {
		parts = append(parts, fmt.Sprintf("guests: %d", *change.Guests))
	}
	message := "Requested " + strings.Join(parts, ", ")
	if note = strings.TrimSpace(note); note != "" {
		message += "\n\n" + note
	}
	return message
}

func replyOrDefault(reply *string, fallback string) *string {
	if reply != nil {
		if trimmed := strings.TrimSpace(*reply); trimmed != "" {
			return &trimmed
		}
	}
	text := fallback
	return &text
}
