package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"techservice/internal/model"
	"techservice/internal/repository"
)

// TicketStore is the subset of the record store the ticket services use.
// *repository.TicketRepository implements it.
type TicketStore interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	UpdateDetails(ctx context.Context, ticket *model.Ticket, unchangedSince time.Time) error
	ApplyPatch(ctx context.Context, id uuid.UUID, cond model.TicketPrecondition, patch model.TicketPatch) (*model.Ticket, error)
	List(ctx context.Context, filter repository.TicketListFilter) ([]model.Ticket, error)
}

type NoteStore interface {
	Create(ctx context.Context, note *model.Note) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]model.Note, error)
}

type DeviceStore interface {
	Create(ctx context.Context, device *model.Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Device, error)
	List(ctx context.Context) ([]model.Device, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TechnicianStore interface {
	Create(ctx context.Context, technician *model.Technician) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Technician, error)
	List(ctx context.Context, activeOnly bool) ([]model.Technician, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventPublisher receives ticket lifecycle events. Delivery is best effort.
type EventPublisher interface {
	ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{})
}

// Guard serializes lifecycle writes per ticket. Acquire fails fast with
// lock.ErrHeld when another request holds the key.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
