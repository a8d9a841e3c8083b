package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/hotel-booking/internal/persistence"
)

// StatsRepository implements persistence.StatsRepository using SQLite.
type StatsRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewStatsRepository creates a new SQLite statistics repository.
func NewStatsRepository(pool *ConnectionPool) *StatsRepository {
	return &StatsRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// RevenueStats aggregates payments and reservations created within the
// optional bounds. Room counts always describe the current inventory.
func (r *StatsRepository) RevenueStats(ctx context.Context, from, to *time.Time) (persistence.RevenueStats, error) {
	stats := persistence.RevenueStats{
		ReservationsByStatus: map[string]int{},
		RoomsByStatus:        map[string]int{},
	}

	bounds, args := createdAtBounds(from, to)

	err := r.helper.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'completed' THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN amount_cents END), 0)
		FROM payments`+bounds, args...).Scan(&stats.CompletedRevenueCents, &stats.PendingRevenueCents)
	if err != nil {
		return persistence.RevenueStats{}, r.mapper.MapError(err)
	}

	if err := r.countBy(ctx, `SELECT status, COUNT(*) FROM reservations`+bounds+` GROUP BY status`, args, stats.ReservationsByStatus); err != nil {
		return persistence.RevenueStats{}, err
	}
	if err := r.countBy(ctx, `SELECT status, COUNT(*) FROM rooms GROUP BY status`, nil, stats.RoomsByStatus); err != nil {
		return persistence.RevenueStats{}, err
	}
	for _, n := range stats.RoomsByStatus {
		stats.TotalRooms += n
	}

	monthly := `SELECT substr(created_at, 1, 7) AS month, SUM(amount_cents) FROM payments WHERE status = 'completed'`
	if bounds != "" {
		monthly += " AND " + strings.TrimPrefix(bounds, " WHERE ")
	}
	monthly += ` GROUP BY month ORDER BY month ASC`

	rows, err := r.helper.Query(ctx, monthly, args...)
	if err != nil {
		return persistence.RevenueStats{}, r.mapper.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var m persistence.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.AmountCents); err != nil {
			return persistence.RevenueStats{}, r.mapper.MapError(err)
		}
		stats.MonthlyRevenue = append(stats.MonthlyRevenue, m)
	}
	if err := rows.Err(); err != nil {
		return persistence.RevenueStats{}, r.mapper.MapError(err)
	}

	return stats, nil
}

func (r *StatsRepository) countBy(ctx context.Context, query string, args []any, into map[string]int) error {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return r.mapper.MapError(err)
		}
		into[key] = n
	}
	return r.mapper.MapError(rows.Err())
}

func createdAtBounds(from, to *time.Time) (string, []any) {
	var where []string
	var args []any
	if from != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTimestamp(*from))
	}
	if to != nil {
		where = append(where, "created_at < ?")
		args = append(args, formatTimestamp(*to))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}
