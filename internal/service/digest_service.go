package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"techservice/internal/analytics"
	"techservice/internal/events"
)

// Digest is one technician's figures for the last complete month.
type Digest struct {
	TechnicianID string                `json:"technician_id"`
	Name         string                `json:"name"`
	Report       analytics.StaffReport `json:"report"`
}

// DigestService publishes the monthly staff performance digest.
type DigestService struct {
	analytics   *AnalyticsService
	technicians TechnicianStore
	events      EventPublisher
	log         zerolog.Logger
}

func NewDigestService(analyticsService *AnalyticsService, technicians TechnicianStore, publisher EventPublisher, log zerolog.Logger) *DigestService {
	return &DigestService{
		analytics:   analyticsService,
		technicians: technicians,
		events:      publisher,
		log:         log,
	}
}

// Run builds the digest of every active technician for the month before the
// one containing now, compared with the month before that.
func (s *DigestService) Run(ctx context.Context, now time.Time) ([]Digest, error) {
	now = now.In(s.analytics.loc)
	month := analytics.PreviousMonthWindow(now)
	before := analytics.PreviousMonthWindow(month.Start)

	technicians, err := s.technicians.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	tickets, err := s.analytics.wonBetween(ctx, nil, before.Start, month.End)
	if err != nil {
		return nil, fmt.Errorf("list won tickets: %w", err)
	}

	digests := make([]Digest, 0, len(technicians))
	for _, tech := range technicians {
		report := analytics.StaffCompare(tickets, tech.ID, month, before)
		digests = append(digests, Digest{TechnicianID: tech.ID.String(), Name: tech.Name, Report: report})

		payload := map[string]interface{}{
			"technician_id":   tech.ID.String(),
			"name":            tech.Name,
			"month":           month.Start.Format("2006-01"),
			"revenue":         report.Current.Revenue,
			"machines":        report.Current.Machines,
			"revenue_change":  report.RevenueChange,
			"machines_change": report.MachinesChange,
			"time_change":     report.TimeChange,
			"is_time_faster":  report.IsTimeFaster,
		}
		if report.Motivation != nil {
			payload["motivation"] = string(*report.Motivation)
		}
		if s.events != nil {
			s.events.ProduceTicketEvent(ctx, events.StaffMonthlyDigest, payload)
		}
		s.log.Info().
			Str("technician_id", tech.ID.String()).
			Str("month", month.Start.Format("2006-01")).
			Float64("revenue", report.Current.Revenue).
			Int("machines", report.Current.Machines).
			Msg("monthly digest")
	}
	return digests, nil
}

// Schedule runs the digest on the standard 5-field cron spec until ctx is
// done. It returns once the schedule is registered.
func (s *DigestService) Schedule(ctx context.Context, spec string) error {
	c := cron.New(cron.WithLocation(s.analytics.loc))
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Run(ctx, time.Now()); err != nil {
			s.log.Error().Err(err).Msg("monthly digest failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	c.Start()
	s.log.Info().Str("schedule", spec).Msg("monthly digest scheduled")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}
