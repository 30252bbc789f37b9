package analytics

import "techservice/internal/model"

type ActivityStats struct {
	TotalTickets       int     `json:"total_tickets"`
	CompletedTickets   int     `json:"completed_tickets"`
	TotalRevenue       float64 `json:"total_revenue"`
	AverageTicketValue float64 `json:"avg_ticket_value"`
}

// Activity summarizes tickets touched in a reporting window. Completed tickets
// follow the company-wide definition.
func Activity(tickets []model.Ticket) ActivityStats {
	completed := sum(tickets, IsCompanyCompleted)
	return ActivityStats{
		TotalTickets:       len(tickets),
		CompletedTickets:   completed.Count,
		TotalRevenue:       completed.Revenue,
		AverageTicketValue: completed.Average(),
	}
}

type StatusCount struct {
	Status     model.TicketStatus `json:"status"`
	Count      int                `json:"count"`
	Percentage float64            `json:"percentage"`
}

// StatusBreakdown counts tickets per pipeline stage, in pipeline order, with
// each stage's share of the total in percent.
func StatusBreakdown(tickets []model.Ticket) []StatusCount {
	counts := make(map[model.TicketStatus]int, len(tickets))
	for _, t := range tickets {
		counts[t.Status]++
	}

	statuses := model.Statuses()
	out := make([]StatusCount, 0, len(statuses))
	for _, st := range statuses {
		sc := StatusCount{Status: st, Count: counts[st]}
		if len(tickets) > 0 {
			sc.Percentage = float64(sc.Count) / float64(len(tickets)) * 100
		}
		out = append(out, sc)
	}
	return out
}
