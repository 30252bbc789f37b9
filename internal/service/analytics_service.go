package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"techservice/internal/analytics"
	"techservice/internal/model"
	"techservice/internal/repository"
)

// DefaultActivityDays is the report window when no dates are given.
const DefaultActivityDays = 30

// AnalyticsService loads ticket history and hands it to the analytics
// package. Calendar windows use the configured location.
type AnalyticsService struct {
	tickets     TicketStore
	technicians TechnicianStore
	loc         *time.Location
	now         func() time.Time
}

func NewAnalyticsService(tickets TicketStore, technicians TechnicianStore, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{tickets: tickets, technicians: technicians, loc: loc, now: time.Now}
}

func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

// Location is the time zone calendar windows are computed in.
func (s *AnalyticsService) Location() *time.Location {
	return s.loc
}

func (s *AnalyticsService) clock() time.Time {
	return s.now().In(s.loc)
}

// Company returns company-wide analytics for rawRange.
func (s *AnalyticsService) Company(ctx context.Context, rawRange string) (*analytics.CompanyReport, error) {
	r, err := analytics.ParseRange(strings.TrimSpace(rawRange))
	if err != nil {
		return nil, invalid("range", "must be one of 7d, 30d, 90d, 12m, all")
	}
	now := s.clock()

	filter := repository.TicketListFilter{}
	if start, bounded := r.Start(now); bounded {
		prev := analytics.PreviousWindow(start, now)
		filter.CreatedFrom = &prev.Start
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	technicians, err := s.technicians.List(ctx, false)
	if err != nil {
		return nil, err
	}

	report := analytics.Company(tickets, technicians, r, now)
	return &report, nil
}

// Staff returns the month-over-month figures of one staff member.
func (s *AnalyticsService) Staff(ctx context.Context, staffID uuid.UUID) (*analytics.StaffReport, error) {
	now := s.clock()
	current := analytics.MonthWindow(now)
	previous := analytics.PreviousMonthWindow(now)

	tickets, err := s.wonBetween(ctx, &staffID, previous.Start, current.End)
	if err != nil {
		return nil, err
	}
	report := analytics.StaffCompare(tickets, staffID, current, previous)
	return &report, nil
}

func (s *AnalyticsService) wonBetween(ctx context.Context, staffID *uuid.UUID, from, to time.Time) ([]model.Ticket, error) {
	won := true
	return s.tickets.List(ctx, repository.TicketListFilter{
		Won:        &won,
		AssignedTo: staffID,
		WonFrom:    &from,
		WonTo:      &to,
		OrderBy:    repository.OrderWonAtDesc,
	})
}

type ActivityQuery struct {
	From       *time.Time
	To         *time.Time
	Technician *uuid.UUID
}

type ActivityReport struct {
	Window    analytics.Window        `json:"window"`
	Stats     analytics.ActivityStats `json:"stats"`
	Breakdown []analytics.StatusCount `json:"status_breakdown"`
	Tickets   []model.Ticket          `json:"tickets"`
}

// Activity reports tickets updated within whole days from From to To. Without
// dates the last DefaultActivityDays days are used.
func (s *AnalyticsService) Activity(ctx context.Context, query ActivityQuery) (*ActivityReport, error) {
	now := s.clock()
	end := now
	if query.To != nil {
		end = query.To.In(s.loc)
	}
	start := end.AddDate(0, 0, -DefaultActivityDays)
	if query.From != nil {
		start = query.From.In(s.loc)
	}
	if start.After(end) {
		return nil, invalid("start_date", "must not be after end_date")
	}
	window := analytics.DayRange(start, end)

	tickets, err := s.tickets.List(ctx, repository.TicketListFilter{
		UpdatedFrom: &window.Start,
		UpdatedTo:   &window.End,
		AssignedTo:  query.Technician,
		OrderBy:     repository.OrderUpdatedDesc,
	})
	if err != nil {
		return nil, err
	}

	return &ActivityReport{
		Window:    window,
		Stats:     analytics.Activity(tickets),
		Breakdown: analytics.StatusBreakdown(tickets),
		Tickets:   tickets,
	}, nil
}

// Customers returns the customer directory derived from ticket contacts.
func (s *AnalyticsService) Customers(ctx context.Context, search string) ([]analytics.Customer, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketListFilter{
		HasCustomer: true,
		OrderBy:     repository.OrderCreatedDesc,
	})
	if err != nil {
		return nil, err
	}
	return analytics.SearchCustomers(analytics.Customers(tickets), search), nil
}
