package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"techservice/internal/board"
	"techservice/internal/model"
	"techservice/internal/repository"
)

type TicketService struct {
	tickets     TicketStore
	notes       NoteStore
	devices     DeviceStore
	technicians TechnicianStore
	log         zerolog.Logger
	now         func() time.Time
}

func NewTicketService(tickets TicketStore, notes NoteStore, devices DeviceStore, technicians TechnicianStore, log zerolog.Logger) *TicketService {
	return &TicketService{
		tickets:     tickets,
		notes:       notes,
		devices:     devices,
		technicians: technicians,
		log:         log,
		now:         time.Now,
	}
}

// TicketInput is the intake and edit form of a ticket. String fields are
// trimmed and stored as null when empty.
type TicketInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DeviceID    string `json:"device_id" validate:"required"`
	AssignedTo  string `json:"assigned_to"`

	SerialNumber   string `json:"serial_number"`
	ProductType    string `json:"product_type"`
	Brand          string `json:"brand"`
	CustomBrand    string `json:"custom_brand"`
	Model          string `json:"model"`
	ModelNumber    string `json:"model_number"`
	CustomCode     string `json:"custom_code"`
	WarrantyStatus string `json:"warranty_status" validate:"omitempty,oneof=in_warranty out_of_warranty unknown"`

	CustomerFullName  string `json:"customer_full_name"`
	CustomerPhone     string `json:"customer_phone"`
	CustomerExtension string `json:"customer_extension"`
	CustomerEmail     string `json:"customer_email" validate:"omitempty,email"`
	CustomerAddress   string `json:"customer_address"`

	BillingCompanyName string `json:"billing_company_name"`
	BillingAddress     string `json:"billing_address"`
	BillingTaxOffice   string `json:"billing_tax_office"`
	BillingTaxNumber   string `json:"billing_tax_number"`

	ApprovedLaborCost   Amount `json:"approved_labor_cost"`
	ApprovedServiceCost Amount `json:"approved_service_cost"`
	InvoiceNumber       string `json:"invoice_number"`
	TotalServiceAmount  Amount `json:"total_service_amount"`

	// UpdatedAt is the version of the ticket the edit form was loaded from.
	// When set, an edit of a ticket changed since then is a conflict.
	UpdatedAt *time.Time `json:"updated_at"`
}

func (in *TicketInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.DeviceID = strings.TrimSpace(in.DeviceID)
	in.Priority = strings.ToLower(strings.TrimSpace(in.Priority))
	in.WarrantyStatus = strings.TrimSpace(in.WarrantyStatus)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
}

// Create stores a new ticket in the first pipeline stage. Staff tickets are
// assigned to the acting staff member; admins assign from the form.
func (s *TicketService) Create(ctx context.Context, principal model.Principal, input TicketInput) (*model.Ticket, error) {
	ticket := &model.Ticket{}
	if err := s.fill(ctx, principal, ticket, input); err != nil {
		return nil, err
	}
	ticket.Status = model.StatusAcceptedPending
	ticket.Won = false
	if principal.IsStaff() {
		staffID := principal.UserID
		ticket.AssignedTo = &staffID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.log.Info().
		Str("ticket_id", ticket.ID.String()).
		Str("actor_id", principal.UserID.String()).
		Msg("ticket created")
	return s.Get(ctx, ticket.ID)
}

// errStaleEdit is returned when the ticket changed between loading the edit
// form, or reading the current row, and writing the edit.
var errStaleEdit = fmt.Errorf("%w: ticket was modified since it was loaded", ErrConflict)

// Update edits the descriptive, snapshot, assignment and financial fields of
// a ticket. Status and the won fields are never written here. The write only
// lands if updated_at still holds the value read, so a transition committed
// in between is never overwritten.
func (s *TicketService) Update(ctx context.Context, principal model.Principal, id uuid.UUID, input TicketInput) (*model.Ticket, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.UpdatedAt != nil && !input.UpdatedAt.Equal(current.UpdatedAt) {
		return nil, errStaleEdit
	}

	edited := *current
	if err := s.fill(ctx, principal, &edited, input); err != nil {
		return nil, err
	}
	edited.UpdatedAt = s.now()

	if err := s.tickets.UpdateDetails(ctx, &edited, current.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrPreconditionFailed):
			if _, getErr := s.Get(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, errStaleEdit
		}
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	return s.Get(ctx, id)
}

// fill validates input and copies it onto ticket.
func (s *TicketService) fill(ctx context.Context, principal model.Principal, ticket *model.Ticket, input TicketInput) error {
	input.normalize()
	if err := validateStruct(input); err != nil {
		return err
	}

	deviceID, err := uuid.Parse(input.DeviceID)
	if err != nil {
		return invalid("device_id", "must be a valid id")
	}
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("device_id", "device does not exist")
		}
		return fmt.Errorf("load device: %w", err)
	}

	labor, err := ParseAmount("approved_labor_cost", input.ApprovedLaborCost)
	if err != nil {
		return err
	}
	serviceCost, err := ParseAmount("approved_service_cost", input.ApprovedServiceCost)
	if err != nil {
		return err
	}
	total, err := ParseAmount("total_service_amount", input.TotalServiceAmount)
	if err != nil {
		return err
	}
	invoice := optionalString(input.InvoiceNumber)
	if (labor == nil) != (serviceCost == nil) {
		if labor == nil {
			return invalid("approved_labor_cost", "must be set together with approved_service_cost")
		}
		return invalid("approved_service_cost", "must be set together with approved_labor_cost")
	}
	if (invoice == nil) != (total == nil) {
		if invoice == nil {
			return invalid("invoice_number", "must be set together with total_service_amount")
		}
		return invalid("total_service_amount", "must be set together with invoice_number")
	}

	if principal.IsAdmin() {
		assignee, err := s.resolveAssignee(ctx, input.AssignedTo)
		if err != nil {
			return err
		}
		switch {
		case !ticket.Won:
			ticket.AssignedTo = assignee
		case assignee != nil && !ticket.IsAssignedTo(*assignee):
			// The win is credited to assigned_to.
			return invalid("assigned_to", "cannot be changed on a won ticket")
		}
	}

	priority := model.Priority(input.Priority)
	if priority == "" {
		priority = model.PriorityMedium
	}

	ticket.Title = input.Title
	ticket.Description = strings.TrimSpace(input.Description)
	ticket.Priority = priority
	ticket.DeviceID = &deviceID

	ticket.SerialNumber = optionalString(input.SerialNumber)
	ticket.ProductType = optionalString(input.ProductType)
	ticket.Brand = ResolveBrand(input.Brand, input.CustomBrand)
	ticket.Model = optionalString(input.Model)
	ticket.ModelNumber = optionalString(input.ModelNumber)
	ticket.CustomCode = optionalString(input.CustomCode)
	ticket.WarrantyStatus = optionalString(input.WarrantyStatus)

	ticket.CustomerFullName = optionalString(input.CustomerFullName)
	ticket.CustomerPhone = optionalString(input.CustomerPhone)
	ticket.CustomerExtension = optionalString(input.CustomerExtension)
	ticket.CustomerEmail = optionalString(input.CustomerEmail)
	ticket.CustomerAddress = optionalString(input.CustomerAddress)

	ticket.BillingCompanyName = optionalString(input.BillingCompanyName)
	ticket.BillingAddress = optionalString(input.BillingAddress)
	ticket.BillingTaxOffice = optionalString(input.BillingTaxOffice)
	ticket.BillingTaxNumber = optionalString(input.BillingTaxNumber)

	ticket.ApprovedLaborCost = labor
	ticket.ApprovedServiceCost = serviceCost
	ticket.InvoiceNumber = invoice
	ticket.TotalServiceAmount = total
	return nil
}

func (s *TicketService) resolveAssignee(ctx context.Context, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("assigned_to", "must be a valid id")
	}
	if _, err := s.technicians.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("assigned_to", "technician does not exist")
		}
		return nil, fmt.Errorf("load technician: %w", err)
	}
	return &id, nil
}

func (s *TicketService) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// TechnicianFilter values besides a technician id.
const (
	TechnicianAll        = "all"
	TechnicianUnassigned = "unassigned"
)

type TicketListQuery struct {
	Search     string
	Status     string
	Technician string
}

func (s *TicketService) List(ctx context.Context, query TicketListQuery) ([]model.Ticket, error) {
	filter := repository.TicketListFilter{OrderBy: repository.OrderCreatedDesc}

	if term := strings.TrimSpace(query.Search); term != "" {
		filter.Search = &term
	}
	if raw := strings.TrimSpace(query.Status); raw != "" && raw != TechnicianAll {
		status := model.TicketStatus(raw)
		if !status.IsValid() {
			return nil, invalid("status", "unknown status")
		}
		filter.Status = &status
	}
	switch tech := strings.TrimSpace(query.Technician); tech {
	case "", TechnicianAll:
	case TechnicianUnassigned:
		filter.Unassigned = true
	default:
		id, err := uuid.Parse(tech)
		if err != nil {
			return nil, invalid("technician", "must be all, unassigned or a technician id")
		}
		filter.AssignedTo = &id
	}

	return s.tickets.List(ctx, filter)
}

// Board returns the kanban projection of every ticket.
func (s *TicketService) Board(ctx context.Context) ([]board.Column, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketListFilter{OrderBy: repository.OrderUpdatedDesc})
	if err != nil {
		return nil, err
	}
	return board.Build(tickets), nil
}

// AddNote appends a manual note to a ticket.
func (s *TicketService) AddNote(ctx context.Context, principal model.Principal, ticketID uuid.UUID, content string) (*model.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "is required")
	}
	if _, err := s.Get(ctx, ticketID); err != nil {
		return nil, err
	}

	note := &model.Note{
		TicketID:  ticketID,
		Content:   content,
		CreatedBy: principal.NoteAuthor(),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

func (s *TicketService) ListNotes(ctx context.Context, ticketID uuid.UUID) ([]model.Note, error) {
	if _, err := s.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.notes.ListByTicket(ctx, ticketID)
}
