package analytics

import (
	"sort"
	"strings"
	"time"

	"techservice/internal/model"
)

type Customer struct {
	FullName           string    `json:"customer_full_name"`
	Phone              *string   `json:"customer_phone"`
	Extension          *string   `json:"customer_extension"`
	Email              *string   `json:"customer_email"`
	Address            *string   `json:"customer_address"`
	BillingCompanyName *string   `json:"billing_company_name"`
	BillingAddress     *string   `json:"billing_address"`
	BillingTaxOffice   *string   `json:"billing_tax_office"`
	BillingTaxNumber   *string   `json:"billing_tax_number"`
	TicketCount        int       `json:"ticket_count"`
	LastTicketDate     time.Time `json:"last_ticket_date"`
}

// CustomerKey identifies a customer by lowercased name, phone and email.
func CustomerKey(t model.Ticket) string {
	return strings.ToLower(deref(t.CustomerFullName) + "-" + deref(t.CustomerPhone) + "-" + deref(t.CustomerEmail))
}

// Customers builds the customer directory from the contact snapshots on
// tickets. Tickets without a customer name are skipped. For customers seen on
// several tickets, non-empty address and billing fields of the newest ticket
// win. The result is ordered by last ticket date, newest first.
func Customers(tickets []model.Ticket) []Customer {
	byKey := map[string]*Customer{}
	for _, t := range tickets {
		if strings.TrimSpace(deref(t.CustomerFullName)) == "" {
			continue
		}
		key := CustomerKey(t)
		c, ok := byKey[key]
		if !ok {
			byKey[key] = &Customer{
				FullName:           *t.CustomerFullName,
				Phone:              t.CustomerPhone,
				Extension:          t.CustomerExtension,
				Email:              t.CustomerEmail,
				Address:            t.CustomerAddress,
				BillingCompanyName: t.BillingCompanyName,
				BillingAddress:     t.BillingAddress,
				BillingTaxOffice:   t.BillingTaxOffice,
				BillingTaxNumber:   t.BillingTaxNumber,
				TicketCount:        1,
				LastTicketDate:     t.CreatedAt,
			}
			continue
		}
		c.TicketCount++
		if t.CreatedAt.After(c.LastTicketDate) {
			c.LastTicketDate = t.CreatedAt
			c.Extension = prefer(t.CustomerExtension, c.Extension)
			c.Address = prefer(t.CustomerAddress, c.Address)
			c.BillingCompanyName = prefer(t.BillingCompanyName, c.BillingCompanyName)
			c.BillingAddress = prefer(t.BillingAddress, c.BillingAddress)
			c.BillingTaxOffice = prefer(t.BillingTaxOffice, c.BillingTaxOffice)
			c.BillingTaxNumber = prefer(t.BillingTaxNumber, c.BillingTaxNumber)
		}
	}

	out := make([]Customer, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastTicketDate.Equal(out[j].LastTicketDate) {
			return out[i].LastTicketDate.After(out[j].LastTicketDate)
		}
		return out[i].FullName < out[j].FullName
	})
	return out
}

// SearchCustomers keeps customers whose name, phone, email, company or address
// contains term, case-insensitively.
func SearchCustomers(customers []Customer, term string) []Customer {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return customers
	}
	out := make([]Customer, 0, len(customers))
	for _, c := range customers {
		fields := []string{c.FullName, deref(c.Phone), deref(c.Email), deref(c.BillingCompanyName), deref(c.Address)}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func prefer(newer, older *string) *string {
	if newer != nil && strings.TrimSpace(*newer) != "" {
		return newer
	}
	return older
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
