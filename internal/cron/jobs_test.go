package cron

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/library-backend/internal/reservations"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	overdue    []reservations.ReservationDTO
	mismatches []int64
	err        error
}

func (f *fakeLedger) ListOverdue(context.Context) ([]reservations.ReservationDTO, error) {
	return f.overdue, f.err
}

func (f *fakeLedger) AuditAvailability(context.Context) ([]int64, error) {
	return f.mismatches, f.err
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestOverdueJobPublishesTotals(t *testing.T) {
	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	expired := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{overdue: []reservations.ReservationDTO{
		{ID: 1, BookID: 10, UserID: 100, ExpiresAt: expired, Penalty: json.Number("30")},
		{ID: 2, BookID: 11, UserID: 101, ExpiresAt: expired, Penalty: json.Number("12.5")},
	}}

	job, err := NewOverdueJob(OverdueJobParams{
		Logger:      newTestLogger(&logs),
		Ledger:      ledger,
		Metrics:     metrics.NewReservationMetrics(reg),
		MaxDetailed: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, OverdueJobName, job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, float64(2), gaugeValue(t, reg, "library_reservations_overdue"))
	assert.Equal(t, 42.5, gaugeValue(t, reg, "library_reservations_overdue_penalty"))

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "reservation overdue"), "detail logging is capped")
	assert.Contains(t, out, `"total_penalty":"42.5"`)
}

func TestOverdueJobPropagatesLedgerErrors(t *testing.T) {
	var logs bytes.Buffer
	job, err := NewOverdueJob(OverdueJobParams{Logger: newTestLogger(&logs), Ledger: &fakeLedger{err: errors.New("db down")}})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestNewOverdueJobRequiresDependencies(t *testing.T) {
	_, err := NewOverdueJob(OverdueJobParams{})
	assert.Error(t, err)
}

func TestAvailabilityAuditJob(t *testing.T) {
	var logs bytes.Buffer

	clean, err := NewAvailabilityAuditJob(newTestLogger(&logs), &fakeLedger{})
	require.NoError(t, err)
	assert.Equal(t, AvailabilityAuditJobName, clean.Name())
	require.NoError(t, clean.Run(context.Background()))
	assert.Contains(t, logs.String(), "availability audit clean")

	dirty, err := NewAvailabilityAuditJob(newTestLogger(&logs), &fakeLedger{mismatches: []int64{3, 7}})
	require.NoError(t, err)
	err = dirty.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 books")

	_, err = NewAvailabilityAuditJob(nil, nil)
	assert.Error(t, err)
}
