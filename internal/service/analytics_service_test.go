package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techservice/internal/analytics"
	"techservice/internal/model"
)

func newAnalyticsFixture(tickets ...model.Ticket) (*AnalyticsService, *fakeTicketStore) {
	store := newFakeTicketStore(tickets...)
	svc := NewAnalyticsService(store, newFakeTechnicianStore(), time.UTC).
		WithClock(func() time.Time { return fixedNow })
	return svc, store
}

func TestAnalyticsCompany(t *testing.T) {
	staff := uuid.New()
	svc, store := newAnalyticsFixture(
		model.Ticket{Status: model.StatusDelivery, CreatedAt: fixedNow.AddDate(0, 0, -2), AssignedTo: &staff, TotalServiceAmount: floatPtr(200)},
		model.Ticket{Status: model.StatusDelivery, CreatedAt: fixedNow.AddDate(0, 0, -3)},
		model.Ticket{Status: model.StatusInvoicing, CreatedAt: fixedNow.AddDate(0, 0, -1), TotalServiceAmount: floatPtr(900)},
		model.Ticket{Status: model.StatusDelivery, CreatedAt: fixedNow.AddDate(0, 0, -10), TotalServiceAmount: floatPtr(100)},
	)

	report, err := svc.Company(context.Background(), " 7d ")

	require.NoError(t, err)
	assert.Equal(t, analytics.Range7Days, report.Range)
	assert.Equal(t, 3, report.TotalTickets)
	assert.Equal(t, 2, report.CompletedCount)
	assert.InDelta(t, 200.0, report.TotalRevenue, 1e-9)
	assert.InDelta(t, 100.0, report.AverageTicketValue, 1e-9)
	assert.InDelta(t, 100.0, report.PreviousRevenue, 1e-9)
	require.NotNil(t, report.RevenueChange)
	assert.InDelta(t, 100.0, *report.RevenueChange, 1e-9)

	require.Len(t, store.filters, 1)
	require.NotNil(t, store.filters[0].CreatedFrom)
	assert.Equal(t, fixedNow.AddDate(0, 0, -14), *store.filters[0].CreatedFrom)
}

func TestAnalyticsCompany_AllAndInvalid(t *testing.T) {
	svc, store := newAnalyticsFixture()

	_, err := svc.Company(context.Background(), "all")
	require.NoError(t, err)
	assert.Nil(t, store.filters[0].CreatedFrom)

	_, err = svc.Company(context.Background(), "1y")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyticsStaff(t *testing.T) {
	staff := uuid.New()
	thisMonth := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2026, time.February, 20, 10, 0, 0, 0, time.UTC)
	svc, _ := newAnalyticsFixture(
		model.Ticket{Status: model.StatusDelivery, Won: true, WonAt: &thisMonth, AssignedTo: &staff,
			CreatedAt: thisMonth.Add(-2 * time.Hour), TotalServiceAmount: floatPtr(300)},
		model.Ticket{Status: model.StatusDelivery, Won: true, WonAt: &lastMonth, AssignedTo: &staff,
			CreatedAt: lastMonth.Add(-4 * time.Hour), TotalServiceAmount: floatPtr(100)},
	)

	report, err := svc.Staff(context.Background(), staff)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Current.Machines)
	assert.Equal(t, 200, report.RevenueChange)
	assert.Equal(t, 0, report.MachinesChange)
	assert.Equal(t, 50, report.TimeChange)
	assert.True(t, report.IsTimeFaster)
	require.NotNil(t, report.Motivation)
	assert.Equal(t, analytics.MotivationMilestone, *report.Motivation)
}

func TestAnalyticsActivity(t *testing.T) {
	svc, store := newAnalyticsFixture(
		model.Ticket{Status: model.StatusDelivery, UpdatedAt: fixedNow.AddDate(0, 0, -1), TotalServiceAmount: floatPtr(50)},
		model.Ticket{Status: model.StatusUnderRepair, UpdatedAt: fixedNow.AddDate(0, 0, -2)},
		model.Ticket{Status: model.StatusDelivery, UpdatedAt: fixedNow.AddDate(0, -3, 0), TotalServiceAmount: floatPtr(999)},
	)

	report, err := svc.Activity(context.Background(), ActivityQuery{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Stats.TotalTickets)
	assert.Equal(t, 1, report.Stats.CompletedTickets)
	assert.InDelta(t, 50.0, report.Stats.TotalRevenue, 1e-9)
	assert.Len(t, report.Breakdown, 7)
	assert.Equal(t, time.Date(2026, time.February, 8, 0, 0, 0, 0, time.UTC), report.Window.Start)
	assert.Equal(t, time.Date(2026, time.March, 10, 23, 59, 59, 0, time.UTC), report.Window.End)
	assert.Equal(t, report.Window.End, *store.filters[0].UpdatedTo)
}

func TestAnalyticsActivity_StartAfterEnd(t *testing.T) {
	svc, _ := newAnalyticsFixture()
	from := fixedNow
	to := fixedNow.AddDate(0, 0, -1)

	_, err := svc.Activity(context.Background(), ActivityQuery{From: &from, To: &to})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyticsCustomers(t *testing.T) {
	svc, store := newAnalyticsFixture(
		model.Ticket{CustomerFullName: strPtr("Deniz Yilmaz"), CustomerPhone: strPtr("555"), CreatedAt: fixedNow},
		model.Ticket{CustomerFullName: strPtr("Can Ek"), CreatedAt: fixedNow},
		model.Ticket{CreatedAt: fixedNow},
	)

	customers, err := svc.Customers(context.Background(), "deniz")

	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.True(t, store.filters[0].HasCustomer)
}
