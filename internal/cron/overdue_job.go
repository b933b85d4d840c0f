package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/library-backend/internal/reservations"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

const OverdueJobName = "overdue-reservations"

type overdueLister interface {
	ListOverdue(ctx context.Context) ([]reservations.ReservationDTO, error)
}

// OverdueJobParams configure the overdue reservation scan.
type OverdueJobParams struct {
	Logger      *logger.Logger
	Ledger      overdueLister
	Metrics     *metrics.ReservationMetrics
	MaxDetailed int
}

// NewOverdueJob builds the job that reports active reservations past their
// expiry. It never mutates reservations.
func NewOverdueJob(params OverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("reservation ledger required")
	}
	maxDetailed := params.MaxDetailed
	if maxDetailed <= 0 {
		maxDetailed = 50
	}
	return &overdueJob{
		logg:        params.Logger,
		ledger:      params.Ledger,
		metrics:     params.Metrics,
		maxDetailed: maxDetailed,
		now:         time.Now,
	}, nil
}

type overdueJob struct {
	logg        *logger.Logger
	ledger      overdueLister
	metrics     *metrics.ReservationMetrics
	maxDetailed int
	now         func() time.Time
}

func (j *overdueJob) Name() string { return OverdueJobName }

func (j *overdueJob) Run(ctx context.Context) error {
	overdue, err := j.ledger.ListOverdue(ctx)
	if err != nil {
		return fmt.Errorf("list overdue reservations: %w", err)
	}

	total := decimal.Zero
	for i, reservation := range overdue {
		penalty, err := decimal.NewFromString(reservation.Penalty.String())
		if err != nil {
			return fmt.Errorf("parse penalty for reservation %d: %w", reservation.ID, err)
		}
		total = total.Add(penalty)

		if i >= j.maxDetailed {
			continue
		}
		entryCtx := j.logg.WithReservationID(ctx, reservation.ID)
		entryCtx = j.logg.WithFields(entryCtx, map[string]any{
			"book_id":    reservation.BookID,
			"user_id":    reservation.UserID,
			"expires_at": reservation.ExpiresAt,
			"penalty":    penalty.String(),
		})
		j.logg.Warn(entryCtx, "reservation overdue")
	}

	j.metrics.SetOverdue(len(overdue), total.InexactFloat64())

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"count":         len(overdue),
		"total_penalty": total.String(),
		"scanned_at":    j.now().UTC(),
	})
	j.logg.Info(logCtx, "overdue reservation scan complete")
	return nil
}
