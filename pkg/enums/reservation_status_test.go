package enums

import (
	"testing"
	"time"
)

func TestParseReservationStatus(t *testing.T) {
	for _, raw := range []string{"active", "overdue", "returned"} {
		status, err := ParseReservationStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !status.IsValid() || status.String() != raw {
			t.Fatalf("unexpected status %q", status)
		}
	}
	if _, err := ParseReservationStatus("lost"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestDeriveReservationStatus(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		isReturned bool
		expiresAt  time.Time
		want       ReservationStatus
	}{
		{name: "active before expiry", expiresAt: now.Add(time.Hour), want: ReservationStatusActive},
		{name: "active at expiry", expiresAt: now, want: ReservationStatusActive},
		{name: "overdue after expiry", expiresAt: now.Add(-time.Minute), want: ReservationStatusOverdue},
		{name: "returned wins over overdue", isReturned: true, expiresAt: now.Add(-48 * time.Hour), want: ReservationStatusReturned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveReservationStatus(tc.isReturned, tc.expiresAt, now); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
