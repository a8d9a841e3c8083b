package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/hotel-booking/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using
// SQLite. Booking writes run in one transaction that repeats the overlap
// query before inserting, so a conflicting stay is never committed even when
// two writers race past the application lock.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const reservationColumns = `id, user_id, room_id, check_in, check_out, guests, status, total_cents, created_at, updated_at`

// overlapQuery counts active reservations of a room whose stay touches the
// requested range. Both bounds are inclusive.
const overlapQuery = `
	SELECT COUNT(*)
	FROM reservations
	WHERE room_id = ?
		AND status = 'active'
		AND check_in <= ?
		AND check_out >= ?
		AND id <> ?
`

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return r.scanReservation(row)
}

// ListReservations returns reservations matching filter, newest stay first.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		where = append(where, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY check_in DESC, created_at DESC, id ASC`

	return r.queryReservations(ctx, query, args...)
}

// ListActiveReservationsForRoom returns the active reservations of a room
// ordered by check-in.
func (r *ReservationRepository) ListActiveReservationsForRoom(ctx context.Context, roomID string) ([]persistence.Reservation, error) {
	return r.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE room_id = ? AND status = 'active'
		ORDER BY check_in ASC, id ASC
	`, roomID)
}

// CreateBooking inserts the reservation and its payment and sets the room
// status in one transaction.
func (r *ReservationRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	res := booking.Reservation
	if res.ID == "" || booking.Payment.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.guardOverlap(ctx, tx, res); err != nil {
			return err
		}

		_, err := r.helper.ExecTx(ctx, tx, `
			INSERT INTO reservations (`+reservationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			res.ID,
			res.UserID,
			res.RoomID,
			formatDate(res.CheckIn),
			formatDate(res.CheckOut),
			res.Guests,
			res.Status,
			res.TotalCents,
			formatTimestamp(res.CreatedAt),
			formatTimestamp(res.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		pay := booking.Payment
		_, err = r.helper.ExecTx(ctx, tx, `
			INSERT INTO payments (`+paymentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			pay.ID,
			res.ID,
			pay.AmountCents,
			pay.Method,
			pay.Status,
			formatTimestamp(pay.CreatedAt),
			formatTimestamp(pay.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		if booking.RoomStatus == "" {
			return nil
		}
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE rooms SET status = ?, updated_at = ? WHERE id = ?
		`, booking.RoomStatus, formatTimestamp(res.UpdatedAt), res.RoomID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// UpdateReservation rewrites the stay of an active reservation. When inquiry
// is not nil it is written in the same transaction and must still be
// unresolved.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, res persistence.Reservation, inquiry *persistence.Inquiry) error {
	if res.ID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.guardOverlap(ctx, tx, res); err != nil {
			return err
		}

		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE reservations
			SET room_id = ?, check_in = ?, check_out = ?, guests = ?, total_cents = ?, updated_at = ?
			WHERE id = ? AND status = 'active'
		`,
			res.RoomID,
			formatDate(res.CheckIn),
			formatDate(res.CheckOut),
			res.Guests,
			res.TotalCents,
			formatTimestamp(res.UpdatedAt),
			res.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := r.staleOrMissing(ctx, tx, result, "reservations", res.ID); err != nil {
			return err
		}

		if inquiry == nil {
			return nil
		}
		result, err = r.helper.ExecTx(ctx, tx, `
			UPDATE inquiries
			SET reply = ?, status = ?, resolution = ?, updated_at = ?
			WHERE id = ? AND resolution = ''
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
		return r.staleOrMissing(ctx, tx, result, "inquiries", inquiry.ID)
	})
}

// TransitionReservation moves a reservation from one status to another.
func (r *ReservationRepository) TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?
		`, to, formatTimestamp(at), id, from)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.staleOrMissing(ctx, tx, result, "reservations", id)
	})
}

func (r *ReservationRepository) guardOverlap(ctx context.Context, tx *sql.Tx, res persistence.Reservation) error {
	var conflicts int
	err := r.helper.QueryRowTx(ctx, tx, overlapQuery,
		res.RoomID,
		formatDate(res.CheckOut),
		formatDate(res.CheckIn),
		res.ID,
	).Scan(&conflicts)
	if err != nil {
		return r.mapper.MapError(err)
	}
	if conflicts > 0 {
		return persistence.ErrConflict
	}
	return nil
}

// staleOrMissing interprets a conditional update that touched no rows.
func (r *ReservationRepository) staleOrMissing(ctx context.Context, tx *sql.Tx, result sql.Result, table, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = r.helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return r.mapper.MapError(err)
	}
	if exists == 0 {
		return persistence.ErrNotFound
	}
	return persistence.ErrStaleState
}

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		res, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return reservations, nil
}

func (r *ReservationRepository) scanReservation(row rowScanner) (persistence.Reservation, error) {
	var res persistence.Reservation
	var checkIn, checkOut, createdAt, updatedAt string

	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.RoomID,
		&checkIn,
		&checkOut,
		&res.Guests,
		&res.Status,
		&res.TotalCents,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}

	if res.CheckIn, err = parseDate(checkIn); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse check_in: %w", err)
	}
	if res.CheckOut, err = parseDate(checkOut); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse check_out: %w", err)
	}
	if res.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if res.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return res, nil
}
