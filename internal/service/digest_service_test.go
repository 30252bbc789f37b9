package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techservice/internal/events"
	"techservice/internal/model"
)

func TestDigestRun(t *testing.T) {
	active := model.Technician{ID: uuid.New(), Name: "Mert", Active: true}
	retired := model.Technician{ID: uuid.New(), Name: "Old", Active: false}
	feb := time.Date(2026, time.February, 12, 15, 0, 0, 0, time.UTC)
	jan := time.Date(2026, time.January, 20, 15, 0, 0, 0, time.UTC)
	march := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)

	tickets := newFakeTicketStore(
		model.Ticket{Status: model.StatusDelivery, Won: true, WonAt: &feb, AssignedTo: &active.ID, CreatedAt: feb.Add(-time.Hour), TotalServiceAmount: floatPtr(300)},
		model.Ticket{Status: model.StatusDelivery, Won: true, WonAt: &jan, AssignedTo: &active.ID, CreatedAt: jan.Add(-time.Hour), TotalServiceAmount: floatPtr(100)},
		model.Ticket{Status: model.StatusDelivery, Won: true, WonAt: &march, AssignedTo: &active.ID, CreatedAt: march.Add(-time.Hour), TotalServiceAmount: floatPtr(5000)},
		model.Ticket{Status: model.StatusDelivery, Won: true, WonAt: &feb, AssignedTo: &retired.ID, TotalServiceAmount: floatPtr(700)},
	)
	technicians := newFakeTechnicianStore(active, retired)
	publisher := &fakePublisher{}
	svc := NewDigestService(NewAnalyticsService(tickets, technicians, time.UTC), technicians, publisher, zerolog.Nop())

	digests, err := svc.Run(context.Background(), fixedNow)

	require.NoError(t, err)
	require.Len(t, digests, 1)
	d := digests[0]
	assert.Equal(t, active.ID.String(), d.TechnicianID)
	assert.Equal(t, 1, d.Report.Current.Machines)
	assert.InDelta(t, 300.0, d.Report.Current.Revenue, 1e-9)
	assert.Equal(t, 200, d.Report.RevenueChange)

	require.Equal(t, []string{events.StaffMonthlyDigest}, publisher.names())
	payload := publisher.events[0].payload
	assert.Equal(t, "2026-02", payload["month"])
	assert.Equal(t, "milestone", payload["motivation"])
}

func TestDigestSchedule(t *testing.T) {
	store := newFakeTicketStore()
	technicians := newFakeTechnicianStore()
	svc := NewDigestService(NewAnalyticsService(store, technicians, time.UTC), technicians, &fakePublisher{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Error(t, svc.Schedule(ctx, "every monday"))
	assert.NoError(t, svc.Schedule(ctx, "0 8 1 * *"))
}
