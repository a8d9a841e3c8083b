// Package sqlite implements the persistence repositories on SQLite using the
// pure-Go modernc.org/sqlite driver and embedded golang-migrate migrations.
package sqlite

import (
	"context"

	"github.com/example/hotel-booking/internal/persistence"
)

// Storage bundles every repository over one connection pool.
type Storage struct {
	*UserRepository
	*SessionRepository
	*RoomRepository
	*AmenityRepository
	*ServiceRepository
	*ReservationRepository
	*PaymentRepository
	*InquiryRepository
	*StatsRepository

	conn *ConnectionPool
}

var (
	_ persistence.UserRepository        = (*Storage)(nil)
	_ persistence.SessionRepository     = (*Storage)(nil)
	_ persistence.RoomRepository        = (*Storage)(nil)
	_ persistence.AmenityRepository     = (*Storage)(nil)
	_ persistence.ServiceRepository     = (*Storage)(nil)
	_ persistence.ReservationRepository = (*Storage)(nil)
	_ persistence.PaymentRepository     = (*Storage)(nil)
	_ persistence.InquiryRepository     = (*Storage)(nil)
	_ persistence.StatsRepository       = (*Storage)(nil)
)

// Open opens the database at path with the server defaults.
func Open(path string) (*Storage, error) {
	return OpenWithConfig(DefaultSQLiteConfig(path))
}

// OpenWithConfig opens the database described by config.
func OpenWithConfig(config SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		UserRepository:        NewUserRepository(pool),
		SessionRepository:     NewSessionRepository(pool),
		RoomRepository:        NewRoomRepository(pool),
		AmenityRepository:     NewAmenityRepository(pool),
		ServiceRepository:     NewServiceRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		PaymentRepository:     NewPaymentRepository(pool),
		InquiryRepository:     NewInquiryRepository(pool),
		StatsRepository:       NewStatsRepository(pool),
		conn:                  pool,
	}, nil
}

// Pool exposes the underlying connection pool.
func (s *Storage) Pool() *ConnectionPool {
	return s.conn
}

// Migrate applies all pending migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	migrator, err := NewMigrator(s.conn.DB())
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.conn.Close()
}
