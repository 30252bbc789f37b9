package service

import (
	"context"
	"strings"

	"techservice/internal/events"
	"techservice/internal/model"
)

// gate is the supplementary data contract of a transition into a status.
// Statuses without an entry commit with only status and updated_at.
type gate struct {
	// required lists the request fields the caller must supply.
	required []string
	// capture validates the request and returns the columns written together
	// with the status. It must not touch the store.
	capture func(req TransitionRequest) (model.TicketPatch, error)
	// afterCommit runs once the status update is stored. A failure is
	// reported as a partial failure and does not undo the status change.
	afterCommit   func(ctx context.Context, s *TransitionService, ticket *model.Ticket, req TransitionRequest) error
	afterCommitOp string
	// notify names the event published when the transition commits.
	notify string
}

var gates = map[model.TicketStatus]gate{
	model.StatusFaultDiagnosis: {
		required:      []string{"note"},
		capture:       captureDiagnosis,
		afterCommit:   appendDiagnosisNote,
		afterCommitOp: "insert diagnosis note",
	},
	model.StatusCustomerApproval: {
		required: []string{"approved_labor_cost", "approved_service_cost"},
		capture:  captureApproval,
	},
	model.StatusInvoicing: {
		required: []string{"invoice_number", "total_service_amount"},
		capture:  captureInvoice,
	},
	model.StatusDelivery: {
		notify: events.TicketDelivered,
	},
}

// RequiredFields returns the request fields a transition into target needs.
func RequiredFields(target model.TicketStatus) []string {
	g, ok := gates[target]
	if !ok || len(g.required) == 0 {
		return []string{}
	}
	out := make([]string, len(g.required))
	copy(out, g.required)
	return out
}

func captureDiagnosis(req TransitionRequest) (model.TicketPatch, error) {
	if strings.TrimSpace(req.Note) == "" {
		return model.TicketPatch{}, invalid("note", "is required")
	}
	return model.TicketPatch{}, nil
}

func appendDiagnosisNote(ctx context.Context, s *TransitionService, ticket *model.Ticket, req TransitionRequest) error {
	return s.notes.Create(ctx, &model.Note{
		TicketID:  ticket.ID,
		Content:   strings.TrimSpace(req.Note),
		CreatedBy: req.Actor.NoteAuthor(),
	})
}

func captureApproval(req TransitionRequest) (model.TicketPatch, error) {
	labor, err := RequireAmount("approved_labor_cost", req.ApprovedLaborCost)
	if err != nil {
		return model.TicketPatch{}, err
	}
	service, err := RequireAmount("approved_service_cost", req.ApprovedServiceCost)
	if err != nil {
		return model.TicketPatch{}, err
	}
	return model.TicketPatch{
		ApprovedLaborCost:   &labor,
		ApprovedServiceCost: &service,
	}, nil
}

func captureInvoice(req TransitionRequest) (model.TicketPatch, error) {
	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" {
		return model.TicketPatch{}, invalid("invoice_number", "is required")
	}
	amount, err := RequireAmount("total_service_amount", req.TotalServiceAmount)
	if err != nil {
		return model.TicketPatch{}, err
	}
	return model.TicketPatch{
		InvoiceNumber:      &number,
		TotalServiceAmount: &amount,
	}, nil
}
