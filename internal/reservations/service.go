package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/library-backend/internal/penalties"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	MinDays = 1
	MaxDays = 365

	day = 24 * time.Hour
)

// Service is the reservation ledger. It owns the availability flag of every book.
type Service interface {
	CreateReservation(ctx context.Context, input CreateReservationInput) (*ReservationDTO, error)
	ReturnBook(ctx context.Context, reservationID int64) (*ReservationDTO, error)
	GetPenalty(ctx context.Context, bookID int64) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID int64) ([]ReservationDTO, error)
	ListOverdue(ctx context.Context) ([]ReservationDTO, error)
	AuditAvailability(ctx context.Context) ([]int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams configure the reservation ledger.
type ServiceParams struct {
	Repo       *Repository
	DB         txRunner
	Calculator penalties.Calculator
	Logger     *logger.Logger
	Metrics    *metrics.ReservationMetrics
}

type service struct {
	repo    *Repository
	db      txRunner
	calc    penalties.Calculator
	logg    *logger.Logger
	metrics *metrics.ReservationMetrics
	now     func() time.Time
}

// NewService constructs the ledger. Metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		db:      params.DB,
		calc:    penalties.NewCalculator(params.Calculator.DailyRate),
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

// CreateReservation reserves an available book for days. The book row is
// locked for the whole transaction, so concurrent creates for one book
// serialize and only the first succeeds.
func (s *service) CreateReservation(ctx context.Context, input CreateReservationInput) (*ReservationDTO, error) {
	if input.Days < MinDays || input.Days > MaxDays {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "days must be between %d and %d", MinDays, MaxDays)
	}
	ctx = s.logg.WithUserID(s.logg.WithBookID(ctx, input.BookID), input.UserID)

	var created *models.Reservation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		book, err := txRepo.FindBookForUpdate(ctx, input.BookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock book")
		}
		if book == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		if !book.IsAvailable {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "book is not available")
		}

		user, err := txRepo.FindUserForUpdate(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock user")
		}
		if user == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}

		if err := txRepo.SetBookAvailability(ctx, book.ID, false); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark book unavailable")
		}

		now := s.now().UTC()
		reservation, err := txRepo.Create(ctx, &models.Reservation{
			BookID:     book.ID,
			UserID:     user.ID,
			ReservedAt: now,
			ExpiresAt:  now.Add(time.Duration(input.Days) * day),
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "book is not available")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert reservation")
		}
		created = reservation
		return nil
	})
	if err != nil {
		s.recordRejection(ctx, "create", err)
		return nil, pkgerrors.Internal(err, "create reservation")
	}

	s.metrics.IncCreated()
	s.logg.Info(s.logg.WithReservationID(ctx, created.ID), "reservation.created")
	return FromModel(created, s.calc, s.now().UTC()), nil
}

// ReturnBook closes an active reservation and frees its book. Returning twice
// is rejected.
func (s *service) ReturnBook(ctx context.Context, reservationID int64) (*ReservationDTO, error) {
	ctx = s.logg.WithReservationID(ctx, reservationID)

	var returned *models.Reservation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		reservation, err := txRepo.FindForUpdate(ctx, reservationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock reservation")
		}
		if reservation == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		if reservation.IsReturned {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "reservation already returned")
		}

		book, err := txRepo.FindBookForUpdate(ctx, reservation.BookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock book")
		}
		if book == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "reserved book is missing")
		}
		if err := txRepo.SetBookAvailability(ctx, book.ID, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark book available")
		}
		if err := txRepo.MarkReturned(ctx, reservation, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark reservation returned")
		}
		returned = reservation
		return nil
	})
	if err != nil {
		s.recordRejection(ctx, "return", err)
		return nil, pkgerrors.Internal(err, "return book")
	}

	s.metrics.IncReturned()
	s.logg.Info(s.logg.WithBookID(ctx, returned.BookID), "reservation.returned")
	return FromModel(returned, s.calc, s.now().UTC()), nil
}

// GetPenalty prices the active reservation of a book. No active reservation,
// including an unknown book, costs zero.
func (s *service) GetPenalty(ctx context.Context, bookID int64) (decimal.Decimal, error) {
	reservation, err := s.repo.FindActiveByBook(ctx, bookID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active reservation")
	}
	if reservation == nil {
		return decimal.Zero, nil
	}
	return s.calc.Calculate(reservation.ExpiresAt, s.now().UTC()), nil
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]ReservationDTO, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reservations")
	}
	return FromModels(rows, s.calc, s.now().UTC()), nil
}

// ListOverdue returns active reservations past their expiry with their penalties.
func (s *service) ListOverdue(ctx context.Context) ([]ReservationDTO, error) {
	now := s.now().UTC()
	rows, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list overdue reservations")
	}
	return FromModels(rows, s.calc, now), nil
}

// AuditAvailability lists books whose availability flag contradicts the ledger.
func (s *service) AuditAvailability(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.FindAvailabilityMismatches(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit availability")
	}
	return ids, nil
}

func (s *service) recordRejection(ctx context.Context, operation string, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return
	}
	switch typed.Code() {
	case pkgerrors.CodeInvalidState:
		reason := metrics.ReasonBookUnavailable
		if operation == "return" {
			reason = metrics.ReasonAlreadyReturned
		}
		s.metrics.IncRejected(operation, reason)
		s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "reservation."+operation+".rejected")
	case pkgerrors.CodeNotFound:
		s.metrics.IncRejected(operation, metrics.ReasonNotFound)
	}
}
