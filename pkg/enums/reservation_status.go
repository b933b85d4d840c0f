package enums

import (
	"fmt"
	"time"
)

// ReservationStatus is derived from a reservation row; it is never stored.
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusOverdue  ReservationStatus = "overdue"
	ReservationStatusReturned ReservationStatus = "returned"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusActive,
	ReservationStatusOverdue,
	ReservationStatusReturned,
}

// String implements fmt.Stringer.
func (s ReservationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known reservation status.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}

// DeriveReservationStatus reports the status of a reservation at now.
func DeriveReservationStatus(isReturned bool, expiresAt, now time.Time) ReservationStatus {
	switch {
	case isReturned:
		return ReservationStatusReturned
	case now.After(expiresAt):
		return ReservationStatusOverdue
	default:
		return ReservationStatusActive
	}
}
