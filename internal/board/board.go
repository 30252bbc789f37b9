// Package board projects tickets onto kanban columns.
package board

import "techservice/internal/model"

// WonColumn is the key of the column that follows delivery.
const WonColumn = "won"

type Column struct {
	Key     string         `json:"key"`
	Order   int            `json:"order"`
	Count   int            `json:"count"`
	Tickets []model.Ticket `json:"tickets"`
}

// Build returns one column per pipeline stage followed by the won column.
// Won tickets leave the delivery column; hidden won tickets appear nowhere.
// The input order is kept inside each column.
func Build(tickets []model.Ticket) []Column {
	statuses := model.Statuses()
	columns := make([]Column, 0, len(statuses)+1)
	index := make(map[model.TicketStatus]int, len(statuses))
	for i, st := range statuses {
		index[st] = i
		columns = append(columns, Column{Key: string(st), Order: i, Tickets: []model.Ticket{}})
	}
	won := Column{Key: WonColumn, Order: len(statuses), Tickets: []model.Ticket{}}

	for _, t := range tickets {
		if t.Won {
			if !t.WonHidden {
				won.Tickets = append(won.Tickets, t)
			}
			continue
		}
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		columns[i].Tickets = append(columns[i].Tickets, t)
	}

	columns = append(columns, won)
	for i := range columns {
		columns[i].Count = len(columns[i].Tickets)
	}
	return columns
}
