package analytics

import (
	"math"
	"time"

	"github.com/google/uuid"

	"techservice/internal/model"
)

// IsWonByStaffInWindow is the per-staff definition of a completed ticket: the
// ticket was marked won, its won_at falls inside w, and it is attributed to
// staffID. It deliberately ignores the pipeline status.
func IsWonByStaffInWindow(t model.Ticket, staffID uuid.UUID, w Window) bool {
	return t.Won && t.WonAt != nil && w.Contains(*t.WonAt) && t.IsAssignedTo(staffID)
}

type StaffPeriod struct {
	Window           Window        `json:"window"`
	Revenue          float64       `json:"revenue"`
	Machines         int           `json:"machines"`
	AvgRepairTime    time.Duration `json:"-"`
	AvgRepairSeconds float64       `json:"avg_repair_seconds"`
}

type MotivationType string

const (
	MotivationMilestone   MotivationType = "milestone"
	MotivationAchievement MotivationType = "achievement"
	MotivationImprovement MotivationType = "improvement"
)

type StaffReport struct {
	StaffID        uuid.UUID   `json:"staff_id"`
	Current        StaffPeriod `json:"current"`
	Previous       StaffPeriod `json:"previous"`
	RevenueChange  int         `json:"revenue_change"`
	MachinesChange int         `json:"machines_change"`

	// TimeChange is positive when repairs got faster.
	TimeChange   int             `json:"time_change"`
	IsTimeFaster bool            `json:"is_time_faster"`
	Motivation   *MotivationType `json:"motivation,omitempty"`
}

// StaffPeriodFor aggregates the tickets won by staffID inside w.
func StaffPeriodFor(tickets []model.Ticket, staffID uuid.UUID, w Window) StaffPeriod {
	p := StaffPeriod{Window: w}
	var total time.Duration
	for _, t := range tickets {
		if !IsWonByStaffInWindow(t, staffID, w) {
			continue
		}
		p.Machines++
		p.Revenue += t.ServiceAmount()
		total += t.WonAt.Sub(t.CreatedAt)
	}
	if p.Machines > 0 {
		p.AvgRepairTime = total / time.Duration(p.Machines)
		p.AvgRepairSeconds = p.AvgRepairTime.Seconds()
	}
	return p
}

// StaffMonthly compares the month containing now with the month before it.
func StaffMonthly(tickets []model.Ticket, staffID uuid.UUID, now time.Time) StaffReport {
	return StaffCompare(tickets, staffID, MonthWindow(now), PreviousMonthWindow(now))
}

// StaffCompare compares two arbitrary windows with the month-over-month rules.
func StaffCompare(tickets []model.Ticket, staffID uuid.UUID, current, previous Window) StaffReport {
	cur := StaffPeriodFor(tickets, staffID, current)
	prev := StaffPeriodFor(tickets, staffID, previous)

	report := StaffReport{
		StaffID:        staffID,
		Current:        cur,
		Previous:       prev,
		RevenueChange:  PercentageChange(cur.Revenue, prev.Revenue),
		MachinesChange: PercentageChange(float64(cur.Machines), float64(prev.Machines)),
	}
	// An empty current month has no duration to compare.
	if prev.AvgRepairTime > 0 && cur.AvgRepairTime > 0 {
		saved := float64(prev.AvgRepairTime - cur.AvgRepairTime)
		report.TimeChange = int(math.Round(saved / float64(prev.AvgRepairTime) * 100))
		report.IsTimeFaster = cur.AvgRepairTime < prev.AvgRepairTime
	}
	report.Motivation = motivation(report, cur, prev)
	return report
}

func motivation(r StaffReport, cur, prev StaffPeriod) *MotivationType {
	improved := cur.Revenue > prev.Revenue || cur.Machines > prev.Machines || r.IsTimeFaster
	if !improved {
		return nil
	}
	m := MotivationImprovement
	switch {
	case r.RevenueChange >= 50 || r.MachinesChange >= 50:
		m = MotivationMilestone
	case r.RevenueChange >= 20 || r.MachinesChange >= 20:
		m = MotivationAchievement
	}
	return &m
}
