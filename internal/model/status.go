package model

type TicketStatus string

const (
	StatusAcceptedPending  TicketStatus = "accepted_pending"
	StatusFaultDiagnosis   TicketStatus = "fault_diagnosis"
	StatusCustomerApproval TicketStatus = "customer_approval"
	StatusUnderRepair      TicketStatus = "under_repair"
	StatusReadyForDelivery TicketStatus = "ready_for_delivery"
	StatusInvoicing        TicketStatus = "invoicing"
	StatusDelivery         TicketStatus = "delivery"
)

// statusOrder is the pipeline order; a status's index is its rank.
var statusOrder = []TicketStatus{
	StatusAcceptedPending,
	StatusFaultDiagnosis,
	StatusCustomerApproval,
	StatusUnderRepair,
	StatusReadyForDelivery,
	StatusInvoicing,
	StatusDelivery,
}

// Statuses returns the pipeline stages in order.
func Statuses() []TicketStatus {
	out := make([]TicketStatus, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Order returns the rank of the status in the pipeline, or -1 for unknown values.
func (s TicketStatus) Order() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s TicketStatus) IsValid() bool {
	return s.Order() >= 0
}

// Next returns the stage that follows s. The second value is false for the
// last stage and for unknown values.
func (s TicketStatus) Next() (TicketStatus, bool) {
	i := s.Order()
	if i < 0 || i == len(statusOrder)-1 {
		return "", false
	}
	return statusOrder[i+1], true
}

// CanTransitionTo reports whether target is exactly one stage after s.
// Backward moves, skips and self transitions are never valid.
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	cur, tgt := s.Order(), target.Order()
	if cur < 0 || tgt < 0 {
		return false
	}
	return tgt == cur+1
}
