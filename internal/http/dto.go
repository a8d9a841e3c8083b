package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/hotel-booking/internal/application"
	"github.com/example/hotel-booking/internal/availability"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseDateField parses an optional YYYY-MM-DD field, recording a
// validation message under field when it is malformed.
func parseDateField(vErr *application.ValidationError, field, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := availability.ParseDate(value)
	if err != nil {
		if vErr.FieldErrors == nil {
			vErr.FieldErrors = map[string]string{}
		}
		if _, exists := vErr.FieldErrors[field]; !exists {
			vErr.FieldErrors[field] = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
		}
		return nil
	}
	return &t
}

func requireDateField(vErr *application.ValidationError, field, value string) time.Time {
	if strings.TrimSpace(value) == "" {
		if vErr.FieldErrors == nil {
			vErr.FieldErrors = map[string]string{}
		}
		vErr.FieldErrors[field] = field + " is required"
		return time.Time{}
	}
	if t := parseDateField(vErr, field, value); t != nil {
		return *t
	}
	return time.Time{}
}

func validationOrNil(vErr *application.ValidationError) error {
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

type userDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		CreatedAt: formatTimestamp(user.CreatedAt),
		UpdatedAt: formatTimestamp(user.UpdatedAt),
	}
}

type roomDTO struct {
	ID          string   `json:"id"`
	Number      string   `json:"number"`
	Type        string   `json:"type"`
	PriceCents  int64    `json:"priceCents"`
	Capacity    int      `json:"capacity"`
	Amenities   []string `json:"amenities"`
	Status      string   `json:"status"`
	Description string   `json:"description,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func toRoomDTO(room application.Room) roomDTO {
	amenities := room.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return roomDTO{
		ID:          room.ID,
		Number:      room.Number,
		Type:        room.Type,
		PriceCents:  room.PriceCents,
		Capacity:    room.Capacity,
		Amenities:   amenities,
		Status:      room.Status,
		Description: room.Description,
		CreatedAt:   formatTimestamp(room.CreatedAt),
		UpdatedAt:   formatTimestamp(room.UpdatedAt),
	}
}

type reservationDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	RoomID      string `json:"roomId"`
	CheckIn     string `json:"checkIn"`
	CheckOut    string `json:"checkOut"`
	Nights      int    `json:"nights"`
	Guests      int    `json:"guests"`
	Status      string `json:"status"`
	TotalCents  int64  `json:"totalCents"`
	ChangeState string `json:"changeState"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toReservationDTO(res application.Reservation) reservationDTO {
	state := res.ChangeState
	if state == "" {
		state = application.ChangeNone
	}
	return reservationDTO{
		ID:          res.ID,
		UserID:      res.UserID,
		RoomID:      res.RoomID,
		CheckIn:     availability.FormatDate(res.CheckIn),
		CheckOut:    availability.FormatDate(res.CheckOut),
		Nights:      res.Nights(),
		Guests:      res.Guests,
		Status:      res.Status,
		TotalCents:  res.TotalCents,
		ChangeState: string(state),
		CreatedAt:   formatTimestamp(res.CreatedAt),
		UpdatedAt:   formatTimestamp(res.UpdatedAt),
	}
}

// stayChangeDTO is the wire form of a proposed or applied stay change.
type stayChangeDTO struct {
	RoomID   *string `json:"roomId,omitempty"`
	CheckIn  *string `json:"checkIn,omitempty"`
	CheckOut *string `json:"checkOut,omitempty"`
	Guests   *int    `json:"guests,omitempty"`
}

func (d stayChangeDTO) toChange() (application.StayChange, error) {
	vErr := &application.ValidationError{}
	change := application.StayChange{RoomID: d.RoomID, Guests: d.Guests}
	if d.CheckIn != nil {
		change.CheckIn = parseDateField(vErr, "checkIn", *d.CheckIn)
	}
	if d.CheckOut != nil {
		change.CheckOut = parseDateField(vErr, "checkOut", *d.CheckOut)
	}
	return change, validationOrNil(vErr)
}

func toStayChangeDTO(change application.StayChange) *stayChangeDTO {
	if change.Empty() {
		return nil
	}
	dto := &stayChangeDTO{RoomID: change.RoomID, Guests: change.Guests}
	if change.CheckIn != nil {
		s := availability.FormatDate(*change.CheckIn)
		dto.CheckIn = &s
	}
	if change.CheckOut != nil {
		s := availability.FormatDate(*change.CheckOut)
		dto.CheckOut = &s
	}
	return dto
}

type inquiryDTO struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	ReservationID *string        `json:"reservationId,omitempty"`
	Subject       string         `json:"subject"`
	Message       string         `json:"message"`
	Reply         *string        `json:"reply,omitempty"`
	Status        string         `json:"status"`
	Resolution    string         `json:"resolution,omitempty"`
	Proposed      *stayChangeDTO `json:"proposed,omitempty"`
	CreatedAt     string         `json:"createdAt"`
	UpdatedAt     string         `json:"updatedAt"`
}

func toInquiryDTO(inquiry application.Inquiry) inquiryDTO {
	return inquiryDTO{
		ID:            inquiry.ID,
		UserID:        inquiry.UserID,
		ReservationID: inquiry.ReservationID,
		Subject:       inquiry.Subject,
		Message:       inquiry.Message,
		Reply:         inquiry.Reply,
		Status:        inquiry.Status,
		Resolution:    inquiry.Resolution,
		Proposed:      toStayChangeDTO(inquiry.Proposed),
		CreatedAt:     formatTimestamp(inquiry.CreatedAt),
		UpdatedAt:     formatTimestamp(inquiry.UpdatedAt),
	}
}

type paymentDTO struct {
	ID            string `json:"id"`
	ReservationID string `json:"reservationId"`
	AmountCents   int64  `json:"amountCents"`
	Method        string `json:"method"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func toPaymentDTO(p application.Payment) paymentDTO {
	return paymentDTO{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		AmountCents:   p.AmountCents,
		Method:        p.Method,
		Status:        p.Status,
		CreatedAt:     formatTimestamp(p.CreatedAt),
		UpdatedAt:     formatTimestamp(p.UpdatedAt),
	}
}

// mapSlice converts a result list, keeping empty lists as [] on the wire.
func mapSlice[T, D any](items []T, convert func(T) D) []D {
	out := make([]D, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out
}
