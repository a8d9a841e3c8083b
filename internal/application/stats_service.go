package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StatsRepository aggregates revenue figures. Nil bounds are open.
type StatsRepository interface {
	RevenueStats(ctx context.Context, from, to *time.Time) (RevenueStats, error)
}

// StatsService reports revenue statistics to administrators.
type StatsService struct {
	stats  StatsRepository
	logger *slog.Logger
}

// NewStatsService constructs a stats service.
func NewStatsService(stats StatsRepository, logger *slog.Logger) *StatsService {
	return &StatsService{stats: stats, logger: defaultLogger(logger)}
}

// RevenueStats aggregates payments, reservations and rooms created within the
// optional bounds.
func (s *StatsService) RevenueStats(ctx context.Context, params RevenueStatsParams) (stats RevenueStats, err error) {
	if s == nil {
		err = fmt.Errorf("StatsService is nil")
		return
	}
	if s.stats == nil {
		err = fmt.Errorf("stats repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "StatsService", "RevenueStats", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute revenue stats", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		err = NewValidationError("to", "to must not be before from")
		return
	}

	stats, err = s.stats.RevenueStats(ctx, params.From, params.To)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if stats.TotalRooms > 0 {
		stats.OccupancyRate = float64(stats.RoomsByStatus[RoomStatusOccupied]) / float64(stats.TotalRooms)
	}
	return
}
