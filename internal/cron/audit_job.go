package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/library-backend/pkg/logger"
)

const AvailabilityAuditJobName = "availability-audit"

type availabilityAuditor interface {
	AuditAvailability(ctx context.Context) ([]int64, error)
}

// NewAvailabilityAuditJob builds the job that checks every book's availability
// flag against the reservation ledger. Mismatches fail the job; nothing is repaired.
func NewAvailabilityAuditJob(logg *logger.Logger, auditor availabilityAuditor) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("availability auditor required")
	}
	return &availabilityAuditJob{logg: logg, auditor: auditor}, nil
}

type availabilityAuditJob struct {
	logg    *logger.Logger
	auditor availabilityAuditor
}

func (j *availabilityAuditJob) Name() string { return AvailabilityAuditJobName }

func (j *availabilityAuditJob) Run(ctx context.Context) error {
	ids, err := j.auditor.AuditAvailability(ctx)
	if err != nil {
		return fmt.Errorf("audit availability: %w", err)
	}
	if len(ids) > 0 {
		return fmt.Errorf("%d books disagree with the reservation ledger: %v", len(ids), ids)
	}
	j.logg.Info(ctx, "availability audit clean")
	return nil
}
