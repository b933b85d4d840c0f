// Package penalties computes overdue fines for reservations.
package penalties

import (
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Calculator prices overdue days at a fixed daily rate.
type Calculator struct {
	DailyRate decimal.Decimal
}

// NewCalculator returns a calculator charging rate per overdue day. A zero
// rate turns penalties off; a negative rate is treated as zero. The default
// rate comes from LIBRARY_PENALTY_DAILY_RATE.
func NewCalculator(rate decimal.Decimal) Calculator {
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	return Calculator{DailyRate: rate}
}

// DaysOverdue returns the number of whole days elapsed since expiresAt. The
// result is floored toward the earlier boundary, so it is negative while the
// reservation has not expired yet.
func DaysOverdue(expiresAt, now time.Time) int64 {
	diff := now.Sub(expiresAt)
	days := int64(diff / day)
	if diff < 0 && diff%day != 0 {
		days--
	}
	return days
}

// Calculate returns max(0, DaysOverdue) * DailyRate.
func (c Calculator) Calculate(expiresAt, now time.Time) decimal.Decimal {
	days := DaysOverdue(expiresAt, now)
	if days <= 0 {
		return decimal.Zero
	}
	return c.DailyRate.Mul(decimal.NewFromInt(days))
}
