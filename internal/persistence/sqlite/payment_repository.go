package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/hotel-booking/internal/persistence"
)

// PaymentRepository implements persistence.PaymentRepository using SQLite.
type PaymentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPaymentRepository creates a new SQLite payment repository.
func NewPaymentRepository(pool *ConnectionPool) *PaymentRepository {
	return &PaymentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const paymentColumns = `id, reservation_id, amount_cents, method, status, created_at, updated_at`

// GetPayment retrieves a payment by ID.
func (r *PaymentRepository) GetPayment(ctx context.Context, id string) (persistence.Payment, error) {
	if id == "" {
		return persistence.Payment{}, persistence.ErrNotFound
	}
	return r.scanPayment(r.helper.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
}

// ListPayments returns payments matching filter, newest first. UserID
// matches through the owning reservation.
func (r *PaymentRepository) ListPayments(ctx context.Context, filter persistence.PaymentFilter) ([]persistence.Payment, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "reservation_id IN (SELECT id FROM reservations WHERE user_id = ?)")
		args = append(args, filter.UserID)
	}
	if filter.ReservationID != "" {
		where = append(where, "reservation_id = ?")
		args = append(args, filter.ReservationID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var payments []persistence.Payment
	for rows.Next() {
		payment, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return payments, nil
}

// UpdatePaymentStatus moves a payment from one status to another. It returns
// ErrStaleState when the stored status is not from.
func (r *PaymentRepository) UpdatePaymentStatus(ctx context.Context, id, from, to string, at time.Time) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?
		`, to, formatTimestamp(at), id, from)
		if err != nil {
			return r.mapper.MapError(err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n > 0 {
			return nil
		}

		var exists int
		if err := r.helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM payments WHERE id = ?`, id).Scan(&exists); err != nil {
			return r.mapper.MapError(err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}
		return persistence.ErrStaleState
	})
}

func (r *PaymentRepository) scanPayment(row rowScanner) (persistence.Payment, error) {
	var payment persistence.Payment
	var createdAt, updatedAt string

	err := row.Scan(
		&payment.ID,
		&payment.ReservationID,
		&payment.AmountCents,
		&payment.Method,
		&payment.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Payment{}, r.mapper.MapError(err)
	}
	if payment.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Payment{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if payment.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Payment{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return payment, nil
}
