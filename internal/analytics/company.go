package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"techservice/internal/model"
)

// TopPerformerLimit caps the top performers list.
const TopPerformerLimit = 5

// IsCompanyCompleted is the company-wide definition of a completed ticket:
// revenue is recognized once a ticket reaches the delivery stage, whoever
// holds it and whether or not it was marked won.
func IsCompanyCompleted(t model.Ticket) bool {
	return t.Status == model.StatusDelivery
}

type TechnicianRevenue struct {
	TechnicianID       uuid.UUID `json:"technician_id"`
	Name               string    `json:"name"`
	AvatarColor        string    `json:"avatar_color"`
	TotalRevenue       float64   `json:"total_revenue"`
	TicketCount        int       `json:"ticket_count"`
	AverageTicketValue float64   `json:"avg_ticket_value"`
}

type CompanyReport struct {
	Range              Range               `json:"range"`
	From               *time.Time          `json:"from,omitempty"`
	TotalTickets       int                 `json:"total_tickets"`
	CompletedCount     int                 `json:"completed_count"`
	TotalRevenue       float64             `json:"total_revenue"`
	AverageTicketValue float64             `json:"avg_ticket_value"`
	PreviousRevenue    float64             `json:"previous_revenue"`
	RevenueChange      *float64            `json:"revenue_change,omitempty"`
	Technicians        []TechnicianRevenue `json:"technicians"`
	UnassignedRevenue  float64             `json:"unassigned_revenue"`
	UnassignedCount    int                 `json:"unassigned_count"`
	TopPerformers      []TechnicianRevenue `json:"top_performers"`
}

// Totals is revenue over a set of countable tickets. The average divides by
// the number of countable tickets, tickets without an amount included.
type Totals struct {
	Count   int
	Revenue float64
}

func (t Totals) Average() float64 {
	if t.Count == 0 {
		return 0
	}
	return t.Revenue / float64(t.Count)
}

func sum(tickets []model.Ticket, keep func(model.Ticket) bool) Totals {
	var out Totals
	for _, t := range tickets {
		if keep(t) {
			out.Count++
			out.Revenue += t.ServiceAmount()
		}
	}
	return out
}

// Company computes company-wide analytics for r ending at now. tickets must
// include every ticket created since the start of the previous window; older
// tickets are ignored. technicians supplies display names for the ranking.
func Company(tickets []model.Ticket, technicians []model.Technician, r Range, now time.Time) CompanyReport {
	report := CompanyReport{Range: r}

	inWindow := tickets
	start, bounded := r.Start(now)
	if bounded {
		report.From = &start
		inWindow = filter(tickets, func(t model.Ticket) bool { return !t.CreatedAt.Before(start) })
	}
	report.TotalTickets = len(inWindow)

	completed := filter(inWindow, IsCompanyCompleted)
	totals := sum(completed, func(model.Ticket) bool { return true })
	report.CompletedCount = totals.Count
	report.TotalRevenue = totals.Revenue
	report.AverageTicketValue = totals.Average()

	if bounded {
		prev := PreviousWindow(start, now)
		previous := sum(tickets, func(t model.Ticket) bool {
			return prev.Contains(t.CreatedAt) && IsCompanyCompleted(t)
		})
		report.PreviousRevenue = previous.Revenue
		report.RevenueChange = RevenueChange(totals.Revenue, previous.Revenue)
	}

	report.Technicians, report.UnassignedRevenue, report.UnassignedCount = rankTechnicians(completed, technicians)
	report.TopPerformers = topPerformers(report.Technicians, TopPerformerLimit)
	return report
}

// rankTechnicians groups tickets by assignee and sorts by revenue, highest
// first. Unassigned tickets are returned separately.
func rankTechnicians(completed []model.Ticket, technicians []model.Technician) ([]TechnicianRevenue, float64, int) {
	byID := make(map[uuid.UUID]model.Technician, len(technicians))
	for _, tech := range technicians {
		byID[tech.ID] = tech
	}

	groups := map[uuid.UUID]*TechnicianRevenue{}
	var unassignedRevenue float64
	var unassignedCount int
	for _, t := range completed {
		if t.AssignedTo == nil {
			unassignedRevenue += t.ServiceAmount()
			unassignedCount++
			continue
		}
		id := *t.AssignedTo
		g, ok := groups[id]
		if !ok {
			g = &TechnicianRevenue{TechnicianID: id}
			if tech, known := byID[id]; known {
				g.Name = tech.Name
				g.AvatarColor = tech.AvatarColor
			} else if t.Technician != nil {
				g.Name = t.Technician.Name
				g.AvatarColor = t.Technician.AvatarColor
			}
			groups[id] = g
		}
		g.TicketCount++
		g.TotalRevenue += t.ServiceAmount()
	}

	ranking := make([]TechnicianRevenue, 0, len(groups))
	for _, g := range groups {
		g.AverageTicketValue = g.TotalRevenue / float64(g.TicketCount)
		ranking = append(ranking, *g)
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].TotalRevenue != ranking[j].TotalRevenue {
			return ranking[i].TotalRevenue > ranking[j].TotalRevenue
		}
		return ranking[i].Name < ranking[j].Name
	})
	return ranking, unassignedRevenue, unassignedCount
}

func topPerformers(ranking []TechnicianRevenue, limit int) []TechnicianRevenue {
	out := make([]TechnicianRevenue, len(ranking))
	copy(out, ranking)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TicketCount > out[j].TicketCount
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func filter(tickets []model.Ticket, keep func(model.Ticket) bool) []model.Ticket {
	out := make([]model.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
