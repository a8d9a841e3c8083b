package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/hotel-booking/internal/persistence"
)

// InquiryRepository implements persistence.InquiryRepository using SQLite.
type InquiryRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewInquiryRepository creates a new SQLite inquiry repository.
func NewInquiryRepository(pool *ConnectionPool) *InquiryRepository {
	return &InquiryRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const inquiryColumns = `id, user_id, reservation_id, subject, message, reply, status, resolution,
	proposed_room_id, proposed_check_in, proposed_check_out, proposed_guests, created_at, updated_at`

// CreateInquiry inserts an inquiry or change request.
func (r *InquiryRepository) CreateInquiry(ctx context.Context, inquiry persistence.Inquiry) error {
	if inquiry.ID == "" || inquiry.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO inquiries (`+inquiryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inquiry.ID,
		inquiry.UserID,
		nullableString(inquiry.ReservationID),
		inquiry.Subject,
		inquiry.Message,
		nullableString(inquiry.Reply),
		inquiry.Status,
		inquiry.Resolution,
		nullableString(inquiry.ProposedRoomID),
		nullableDate(inquiry.ProposedCheckIn),
		nullableDate(inquiry.ProposedCheckOut),
		nullableInt(inquiry.ProposedGuests),
		formatTimestamp(inquiry.CreatedAt),
		formatTimestamp(inquiry.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateInquiry rewrites the reply, status and resolution of an inquiry.
// The reservation link and the proposal are immutable.
func (r *InquiryRepository) UpdateInquiry(ctx context.Context, inquiry persistence.Inquiry) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE inquiries
		SET reply = ?, status = ?, resolution = ?, updated_at = ?
		WHERE id = ?
	`,
		nullableString(inquiry.Reply),
		inquiry.Status,
		inquiry.Resolution,
		formatTimestamp(inquiry.UpdatedAt),
		inquiry.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetInquiry retrieves an inquiry by ID.
func (r *InquiryRepository) GetInquiry(ctx context.Context, id string) (persistence.Inquiry, error) {
	if id == "" {
		return persistence.Inquiry{}, persistence.ErrNotFound
	}
	return r.scanInquiry(r.helper.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = ?`, id))
}

// ListInquiries returns inquiries matching filter, newest first.
func (r *InquiryRepository) ListInquiries(ctx context.Context, filter persistence.InquiryFilter) ([]persistence.Inquiry, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.ChangeRequestsOnly {
		where = append(where, "reservation_id IS NOT NULL")
	}
	if filter.ReservationIDs != nil {
		if len(filter.ReservationIDs) == 0 {
			return nil, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.ReservationIDs)), ",")
		where = append(where, "reservation_id IN ("+placeholders+")")
		for _, id := range filter.ReservationIDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + inquiryColumns + ` FROM inquiries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var inquiries []persistence.Inquiry
	for rows.Next() {
		inquiry, err := r.scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		inquiries = append(inquiries, inquiry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return inquiries, nil
}

func (r *InquiryRepository) scanInquiry(row rowScanner) (persistence.Inquiry, error) {
	var inquiry persistence.Inquiry
	var reservationID, reply, proposedRoomID, proposedCheckIn, proposedCheckOut sql.NullString
	var proposedGuests sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(
		&inquiry.ID,
		&inquiry.UserID,
		&reservationID,
		&inquiry.Subject,
		&inquiry.Message,
		&reply,
		&inquiry.Status,
		&inquiry.Resolution,
		&proposedRoomID,
		&proposedCheckIn,
		&proposedCheckOut,
		&proposedGuests,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Inquiry{}, r.mapper.MapError(err)
	}

	inquiry.ReservationID = stringPtr(reservationID)
	inquiry.Reply = stringPtr(reply)
	inquiry.ProposedRoomID = stringPtr(proposedRoomID)
	if proposedGuests.Valid {
		guests := int(proposedGuests.Int64)
		inquiry.ProposedGuests = &guests
	}
	if inquiry.ProposedCheckIn, err = parseNullableDate(proposedCheckIn); err != nil {
		return persistence.Inquiry{}, fmt.Errorf("failed to parse proposed_check_in: %w", err)
	}
	if inquiry.ProposedCheckOut, err = parseNullableDate(proposedCheckOut); err != nil {
		return persistence.Inquiry{}, fmt.Errorf("failed to parse proposed_check_out: %w", err)
	}
	if inquiry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Inquiry{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if inquiry.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Inquiry{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return inquiry, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
