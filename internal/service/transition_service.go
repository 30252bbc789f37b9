package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"techservice/internal/events"
	"techservice/internal/lock"
	"techservice/internal/metrics"
	"techservice/internal/model"
	"techservice/internal/repository"
)

const (
	opTransition = "transition"
	opMarkWon    = "mark_won"
	opClearWon   = "clear_won"
)

// TransitionService moves tickets through the pipeline and owns the won flag.
// Every write re-reads the ticket under the per-ticket guard, checks the rules
// against that fresh row and commits with a compare-and-set on the status it
// read.
type TransitionService struct {
	tickets TicketStore
	notes   NoteStore
	guard   Guard
	events  EventPublisher
	log     zerolog.Logger
	now     func() time.Time
}

func NewTransitionService(tickets TicketStore, notes NoteStore, guard Guard, publisher EventPublisher, log zerolog.Logger) *TransitionService {
	return &TransitionService{
		tickets: tickets,
		notes:   notes,
		guard:   guard,
		events:  publisher,
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (s *TransitionService) WithClock(now func() time.Time) *TransitionService {
	s.now = now
	return s
}

type TransitionRequest struct {
	TicketID uuid.UUID
	Target   model.TicketStatus
	Actor    model.Principal

	Note                string
	ApprovedLaborCost   Amount
	ApprovedServiceCost Amount
	InvoiceNumber       string
	TotalServiceAmount  Amount
}

type TransitionResult struct {
	Ticket   *model.Ticket      `json:"ticket"`
	Previous model.TicketStatus `json:"previous_status"`
	Notified bool               `json:"notified"`
}

// StageInfo describes one pipeline stage and what entering it requires.
type StageInfo struct {
	Status         model.TicketStatus `json:"status"`
	Order          int                `json:"order"`
	RequiredFields []string           `json:"required_fields"`
}

func Pipeline() []StageInfo {
	statuses := model.Statuses()
	out := make([]StageInfo, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, StageInfo{Status: st, Order: st.Order(), RequiredFields: RequiredFields(st)})
	}
	return out
}

// RequestTransition advances a ticket by exactly one stage. Gate fields are
// validated before anything is read or written, so a rejected or abandoned
// gate leaves the ticket untouched.
func (s *TransitionService) RequestTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	target := string(req.Target)
	if req.TicketID == uuid.Nil {
		return nil, invalid("ticket_id", "is required")
	}
	if !req.Target.IsValid() {
		metrics.ObserveLifecycle(opTransition, target, metrics.OutcomeRejected)
		return nil, reject(RejectUnknownStatus, "%q is not a pipeline stage", req.Target)
	}

	g := gates[req.Target]
	patch := model.TicketPatch{}
	if g.capture != nil {
		captured, err := g.capture(req)
		if err != nil {
			metrics.ObserveLifecycle(opTransition, target, metrics.OutcomeInvalid)
			return nil, err
		}
		patch = captured
	}

	release, err := s.acquire(ctx, opTransition, target, req.TicketID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.load(ctx, req.TicketID)
	if err != nil {
		return nil, err
	}
	if current.Status == req.Target {
		return nil, s.rejected(opTransition, target, req.TicketID, reject(RejectSameStatus, "ticket is already in %s", req.Target))
	}
	if !current.Status.CanTransitionTo(req.Target) {
		return nil, s.rejected(opTransition, target, req.TicketID,
			reject(RejectNotSingleStep, "%s -> %s", current.Status, req.Target))
	}

	patch.Status = &req.Target
	patch.UpdatedAt = s.now()

	committed, err := s.tickets.ApplyPatch(ctx, req.TicketID, model.TicketPrecondition{Status: current.Status}, patch)
	if err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) {
			return nil, s.rejected(opTransition, target, req.TicketID,
				reject(RejectStale, "ticket left %s before the update", current.Status))
		}
		metrics.ObserveLifecycle(opTransition, target, metrics.OutcomeFailed)
		return nil, fmt.Errorf("update ticket status: %w", err)
	}
	if field, bad := patch.Mismatch(*committed); bad {
		metrics.ObserveLifecycle(opTransition, target, metrics.OutcomeFailed)
		return nil, &VerificationError{Field: field}
	}
	committed.Device = current.Device
	committed.Technician = current.Technician

	result := &TransitionResult{Ticket: committed, Previous: current.Status}
	payload := ticketPayload(committed)
	payload["previous_status"] = string(current.Status)
	payload["actor_id"] = req.Actor.UserID.String()
	s.publish(ctx, events.TicketStatusChanged, payload)
	if g.notify != "" {
		s.publish(ctx, g.notify, payload)
		result.Notified = true
	}

	if g.afterCommit != nil {
		if err := g.afterCommit(ctx, s, committed, req); err != nil {
			s.log.Warn().
				Err(err).
				Bool("data_quality", true).
				Str("ticket_id", req.TicketID.String()).
				Str("status", target).
				Str("op", g.afterCommitOp).
				Msg("status committed but follow-up write failed")
			metrics.ObserveLifecycle(opTransition, target, metrics.OutcomePartial)
			return result, &PartialFailureError{Op: g.afterCommitOp, Err: err}
		}
	}

	metrics.ObserveLifecycle(opTransition, target, metrics.OutcomeCommitted)
	s.log.Info().
		Str("ticket_id", req.TicketID.String()).
		Str("from", string(current.Status)).
		Str("to", target).
		Msg("ticket transitioned")
	return result, nil
}

// MarkWon attributes a delivered ticket to the acting staff member. It sets
// won, won_at and assigned_to in one update, verifies the returned row and
// confirms the write with a fresh read before reporting success.
func (s *TransitionService) MarkWon(ctx context.Context, ticketID uuid.UUID, actingStaffID uuid.UUID) (*model.Ticket, error) {
	if ticketID == uuid.Nil {
		return nil, invalid("ticket_id", "is required")
	}
	if actingStaffID == uuid.Nil {
		return nil, s.rejected(opMarkWon, "won", ticketID, reject(RejectMissingActor, "acting staff id is required"))
	}

	release, err := s.acquire(ctx, opMarkWon, "won", ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if current.Won {
		return nil, s.rejected(opMarkWon, "won", ticketID, reject(RejectAlreadyWon, "ticket was won at %s", formatTime(current.WonAt)))
	}
	if current.Status != model.StatusDelivery {
		return nil, s.rejected(opMarkWon, "won", ticketID, reject(RejectNotDelivered, "ticket is in %s", current.Status))
	}

	now := s.now()
	won := true
	patch := model.TicketPatch{
		Won:        &won,
		WonAt:      &now,
		AssignedTo: &actingStaffID,
		UpdatedAt:  now,
	}
	cond := model.TicketPrecondition{Status: model.StatusDelivery, NotWon: true}

	committed, err := s.tickets.ApplyPatch(ctx, ticketID, cond, patch)
	if err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) {
			return nil, s.rejected(opMarkWon, "won", ticketID, s.explainWonConflict(ctx, ticketID))
		}
		metrics.ObserveLifecycle(opMarkWon, "won", metrics.OutcomeFailed)
		return nil, fmt.Errorf("mark ticket won: %w", err)
	}
	if field, bad := patch.Mismatch(*committed); bad {
		metrics.ObserveLifecycle(opMarkWon, "won", metrics.OutcomeFailed)
		return nil, &VerificationError{Field: field}
	}

	confirmed, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		metrics.ObserveLifecycle(opMarkWon, "won", metrics.OutcomeFailed)
		return nil, fmt.Errorf("confirm won ticket: %w", err)
	}
	if field, bad := patch.Mismatch(*confirmed); bad {
		metrics.ObserveLifecycle(opMarkWon, "won", metrics.OutcomeFailed)
		return nil, &VerificationError{Field: field}
	}

	s.publish(ctx, events.TicketWon, ticketPayload(confirmed))
	metrics.ObserveLifecycle(opMarkWon, "won", metrics.OutcomeCommitted)
	metrics.ObserveWonRevenue(confirmed.ServiceAmount())
	s.log.Info().
		Str("ticket_id", ticketID.String()).
		Str("staff_id", actingStaffID.String()).
		Float64("amount", confirmed.ServiceAmount()).
		Msg("ticket marked won")
	return confirmed, nil
}

// ClearWon hides a won ticket from the won report. Won, won_at and status are
// left as they are.
func (s *TransitionService) ClearWon(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error) {
	if ticketID == uuid.Nil {
		return nil, invalid("ticket_id", "is required")
	}

	release, err := s.acquire(ctx, opClearWon, "won_hidden", ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !current.Won {
		return nil, s.rejected(opClearWon, "won_hidden", ticketID, reject(RejectNotWon, "only won tickets can be cleared"))
	}
	if current.WonHidden {
		return current, nil
	}

	hidden := true
	patch := model.TicketPatch{WonHidden: &hidden}
	committed, err := s.tickets.ApplyPatch(ctx, ticketID, model.TicketPrecondition{}, patch)
	if err != nil {
		metrics.ObserveLifecycle(opClearWon, "won_hidden", metrics.OutcomeFailed)
		return nil, fmt.Errorf("hide won ticket: %w", err)
	}
	if field, bad := patch.Mismatch(*committed); bad {
		metrics.ObserveLifecycle(opClearWon, "won_hidden", metrics.OutcomeFailed)
		return nil, &VerificationError{Field: field}
	}
	committed.Device = current.Device
	committed.Technician = current.Technician

	s.publish(ctx, events.TicketWonHidden, ticketPayload(committed))
	metrics.ObserveLifecycle(opClearWon, "won_hidden", metrics.OutcomeCommitted)
	return committed, nil
}

// WonReport is the listing of won tickets that have not been cleared.
type WonReport struct {
	Tickets      []model.Ticket `json:"tickets"`
	TotalRevenue float64        `json:"total_revenue"`
}

func (s *TransitionService) ListWon(ctx context.Context, search string) (*WonReport, error) {
	won := true
	filter := repository.TicketListFilter{
		Won:           &won,
		ExcludeHidden: true,
		OrderBy:       repository.OrderWonAtDesc,
	}
	if search != "" {
		filter.Search = &search
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	report := &WonReport{Tickets: tickets}
	for _, t := range tickets {
		report.TotalRevenue += t.ServiceAmount()
	}
	return report, nil
}

func (s *TransitionService) acquire(ctx context.Context, op, target string, id uuid.UUID) (func(), error) {
	release, err := s.guard.Acquire(ctx, "ticket:"+id.String())
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			metrics.ObserveLifecycle(op, target, metrics.OutcomeBusy)
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("acquire ticket guard: %w", err)
	}
	return release, nil
}

func (s *TransitionService) load(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	return ticket, nil
}

func (s *TransitionService) rejected(op, target string, id uuid.UUID, err error) error {
	metrics.ObserveLifecycle(op, target, metrics.OutcomeRejected)
	s.log.Debug().Err(err).Str("ticket_id", id.String()).Str("op", op).Msg("lifecycle request rejected")
	return err
}

// explainWonConflict re-reads a ticket whose won update matched no row.
func (s *TransitionService) explainWonConflict(ctx context.Context, id uuid.UUID) error {
	fresh, err := s.tickets.GetByID(ctx, id)
	if err == nil && fresh.Won {
		return reject(RejectAlreadyWon, "ticket was won concurrently")
	}
	return reject(RejectStale, "ticket changed before the update")
}

func (s *TransitionService) publish(ctx context.Context, event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.ProduceTicketEvent(ctx, event, payload)
}

func ticketPayload(t *model.Ticket) map[string]interface{} {
	payload := map[string]interface{}{
		"ticket_id":            t.ID.String(),
		"title":                t.Title,
		"status":               string(t.Status),
		"won":                  t.Won,
		"total_service_amount": t.ServiceAmount(),
	}
	if t.AssignedTo != nil {
		payload["assigned_to"] = t.AssignedTo.String()
	}
	if t.WonAt != nil {
		payload["won_at"] = t.WonAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "unknown time"
	}
	return t.UTC().Format(time.RFC3339)
}
