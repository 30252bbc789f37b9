package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TicketPatch is a partial update of the lifecycle columns of a ticket.
// Nil fields are left untouched. A patch is applied in memory to build the
// tentative row and sent to the store as a single update; the row the store
// returns is then checked against the same patch.
type TicketPatch struct {
	Status              *TicketStatus
	ApprovedLaborCost   *float64
	ApprovedServiceCost *float64
	InvoiceNumber       *string
	TotalServiceAmount  *float64
	Won                 *bool
	WonAt               *time.Time
	WonHidden           *bool
	AssignedTo          *uuid.UUID
	UpdatedAt           time.Time
}

// TicketPrecondition is evaluated by the store in the WHERE clause of a patch
// update. Zero values impose no condition.
type TicketPrecondition struct {
	Status TicketStatus
	NotWon bool
}

func (c TicketPrecondition) Holds(t Ticket) bool {
	if c.Status != "" && t.Status != c.Status {
		return false
	}
	if c.NotWon && t.Won {
		return false
	}
	return true
}

func (p TicketPatch) IsEmpty() bool {
	return p.Status == nil && p.ApprovedLaborCost == nil && p.ApprovedServiceCost == nil &&
		p.InvoiceNumber == nil && p.TotalServiceAmount == nil && p.Won == nil &&
		p.WonAt == nil && p.WonHidden == nil && p.AssignedTo == nil
}

// Apply returns a copy of t with the patch applied.
func (p TicketPatch) Apply(t Ticket) Ticket {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ApprovedLaborCost != nil {
		t.ApprovedLaborCost = float64Ptr(*p.ApprovedLaborCost)
	}
	if p.ApprovedServiceCost != nil {
		t.ApprovedServiceCost = float64Ptr(*p.ApprovedServiceCost)
	}
	if p.InvoiceNumber != nil {
		v := *p.InvoiceNumber
		t.InvoiceNumber = &v
	}
	if p.TotalServiceAmount != nil {
		t.TotalServiceAmount = float64Ptr(*p.TotalServiceAmount)
	}
	if p.Won != nil {
		t.Won = *p.Won
	}
	if p.WonAt != nil {
		v := *p.WonAt
		t.WonAt = &v
	}
	if p.WonHidden != nil {
		t.WonHidden = *p.WonHidden
	}
	if p.AssignedTo != nil {
		v := *p.AssignedTo
		t.AssignedTo = &v
	}
	if !p.UpdatedAt.IsZero() {
		t.UpdatedAt = p.UpdatedAt
	}
	return t
}

// Columns returns the patch as a column map for the store update.
func (p TicketPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.ApprovedLaborCost != nil {
		cols["approved_labor_cost"] = *p.ApprovedLaborCost
	}
	if p.ApprovedServiceCost != nil {
		cols["approved_service_cost"] = *p.ApprovedServiceCost
	}
	if p.InvoiceNumber != nil {
		cols["invoice_number"] = *p.InvoiceNumber
	}
	if p.TotalServiceAmount != nil {
		cols["total_service_amount"] = *p.TotalServiceAmount
	}
	if p.Won != nil {
		cols["won"] = *p.Won
	}
	if p.WonAt != nil {
		cols["won_at"] = *p.WonAt
	}
	if p.WonHidden != nil {
		cols["won_hidden"] = *p.WonHidden
	}
	if p.AssignedTo != nil {
		cols["assigned_to"] = *p.AssignedTo
	}
	if !p.UpdatedAt.IsZero() {
		cols["updated_at"] = p.UpdatedAt
	}
	return cols
}

// Mismatch returns the first patched column whose value in t does not match
// the patch. Amounts compare at cent precision and timestamps at one second,
// which covers the store's numeric and timestamp rounding.
func (p TicketPatch) Mismatch(t Ticket) (string, bool) {
	if p.Status != nil && t.Status != *p.Status {
		return "status", true
	}
	if p.ApprovedLaborCost != nil && !sameAmount(t.ApprovedLaborCost, *p.ApprovedLaborCost) {
		return "approved_labor_cost", true
	}
	if p.ApprovedServiceCost != nil && !sameAmount(t.ApprovedServiceCost, *p.ApprovedServiceCost) {
		return "approved_service_cost", true
	}
	if p.InvoiceNumber != nil && (t.InvoiceNumber == nil || *t.InvoiceNumber != *p.InvoiceNumber) {
		return "invoice_number", true
	}
	if p.TotalServiceAmount != nil && !sameAmount(t.TotalServiceAmount, *p.TotalServiceAmount) {
		return "total_service_amount", true
	}
	if p.Won != nil && t.Won != *p.Won {
		return "won", true
	}
	if p.WonAt != nil && (t.WonAt == nil || absDuration(t.WonAt.Sub(*p.WonAt)) > time.Second) {
		return "won_at", true
	}
	if p.WonHidden != nil && t.WonHidden != *p.WonHidden {
		return "won_hidden", true
	}
	if p.AssignedTo != nil && !t.IsAssignedTo(*p.AssignedTo) {
		return "assigned_to", true
	}
	return "", false
}

func sameAmount(got *float64, want float64) bool {
	return got != nil && math.Abs(*got-want) < 0.005
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func float64Ptr(v float64) *float64 {
	return &v
}
