package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/hotel-booking/internal/application"
	"github.com/example/hotel-booking/internal/events"
	"github.com/example/hotel-booking/internal/lock"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) defaults(idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}

// ReservationServiceDeps captures dependencies for constructing a reservation service.
type ReservationServiceDeps struct {
	Reservations application.ReservationRepository
	Rooms        application.RoomRepository
	Inquiries    application.InquiryRepository
	Locker       lock.Locker
	Publisher    events.Publisher
	Location     *time.Location
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewReservationService builds a reservation service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewReservationServiceWithLogger(
		deps.Reservations,
		deps.Rooms,
		deps.Inquiries,
		deps.Locker,
		deps.Publisher,
		deps.Location,
		idGen,
		now,
		deps.Logger,
	)
}

// RoomServiceDeps captures dependencies for constructing a room service.
type RoomServiceDeps struct {
	Rooms       application.RoomRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewRoomService builds a room service using the supplied dependencies.
func (f *ServiceFactory) NewRoomService(deps RoomServiceDeps) *application.RoomService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewRoomServiceWithLogger(deps.Rooms, idGen, now, deps.Logger)
}

// InquiryServiceDeps captures dependencies for constructing an inquiry service.
type InquiryServiceDeps struct {
	Inquiries   application.InquiryRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewInquiryService builds an inquiry service using the supplied dependencies.
func (f *ServiceFactory) NewInquiryService(deps InquiryServiceDeps) *application.InquiryService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewInquiryServiceWithLogger(deps.Inquiries, idGen, now, deps.Logger)
}

// AccountServiceDeps captures dependencies for constructing an account service.
type AccountServiceDeps struct {
	Users       application.UserRepository
	Hash        application.PasswordHasher
	Verify      application.PasswordVerifier
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAccountService builds an account service. Hashing defaults to a cheap
// argon2id parameter set so tests stay fast.
func (f *ServiceFactory) NewAccountService(deps AccountServiceDeps) *application.AccountService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	hash := deps.Hash
	if hash == nil {
		hash = FastPasswordHasher()
	}
	verify := deps.Verify
	if verify == nil {
		verify = application.VerifyPassword
	}
	return application.NewAccountServiceWithLogger(deps.Users, hash, verify, idGen, now, deps.Logger)
}

// FastPasswordHasher returns an argon2id hasher tuned for tests.
func FastPasswordHasher() application.PasswordHasher {
	return application.NewPasswordHasher(application.Argon2idParams{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}
