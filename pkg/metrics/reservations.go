package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons reported by the reservation ledger.
const (
	ReasonBookUnavailable = "book_unavailable"
	ReasonAlreadyReturned = "already_returned"
	ReasonNotFound        = "not_found"
)

// ReservationMetrics tracks ledger transitions and the overdue backlog.
type ReservationMetrics struct {
	created        prometheus.Counter
	returned       prometheus.Counter
	rejected       *prometheus.CounterVec
	overdueCount   prometheus.Gauge
	overduePenalty prometheus.Gauge
}

// NewReservationMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "library_reservations_created_total",
		Help: "Reservations created.",
	})
	returned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "library_reservations_returned_total",
		Help: "Reservations returned.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "library_reservations_rejected_total",
		Help: "Reservation transitions rejected by the ledger.",
	}, []string{"operation", "reason"})
	overdueCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "library_reservations_overdue",
		Help: "Active reservations past their expiry at the last scan.",
	})
	overduePenalty := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "library_reservations_overdue_penalty",
		Help: "Outstanding penalty across overdue reservations at the last scan.",
	})
	reg.MustRegister(created, returned, rejected, overdueCount, overduePenalty)
	return &ReservationMetrics{
		created:        created,
		returned:       returned,
		rejected:       rejected,
		overdueCount:   overdueCount,
		overduePenalty: overduePenalty,
	}
}

func (m *ReservationMetrics) IncCreated() {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
}

func (m *ReservationMetrics) IncReturned() {
	if m == nil || m.returned == nil {
		return
	}
	m.returned.Inc()
}

// IncRejected counts a rejected create or return.
func (m *ReservationMetrics) IncRejected(operation, reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(operation), normalizeLabel(reason)).Inc()
}

// SetOverdue publishes the result of an overdue scan.
func (m *ReservationMetrics) SetOverdue(count int, penalty float64) {
	if m == nil || m.overdueCount == nil {
		return
	}
	m.overdueCount.Set(float64(count))
	m.overduePenalty.Set(penalty)
}
