package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"techservice/internal/model"
)

// ErrPreconditionFailed is returned by ApplyPatch and UpdateDetails when no
// row matched the id together with the precondition.
var ErrPreconditionFailed = errors.New("ticket precondition failed")

// detailColumns are the columns a direct edit may write. Lifecycle columns
// (status and the won fields) are only written through ApplyPatch.
var detailColumns = []string{
	"title", "description", "priority", "device_id", "assigned_to",
	"serial_number", "product_type", "brand", "model", "model_number", "custom_code", "warranty_status",
	"customer_full_name", "customer_phone", "customer_extension", "customer_email", "customer_address",
	"billing_company_name", "billing_address", "billing_tax_office", "billing_tax_number",
	"approved_labor_cost", "approved_service_cost", "invoice_number", "total_service_amount",
	"updated_at",
}

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(ticket).Error
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Device").
		Preload("Technician").
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// UpdateDetails writes the editable columns of ticket if its stored
// updated_at still equals unchangedSince. ErrPreconditionFailed means either
// the row is gone or it was written in between.
func (r *TicketRepository) UpdateDetails(ctx context.Context, ticket *model.Ticket, unchangedSince time.Time) error {
	res := r.db.WithContext(ctx).
		Model(ticket).
		Where("updated_at = ?", unchangedSince).
		Select(detailColumns).
		Updates(ticket)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

// ApplyPatch writes patch in one UPDATE guarded by cond and returns the row as
// stored after the update.
func (r *TicketRepository) ApplyPatch(ctx context.Context, id uuid.UUID, cond model.TicketPrecondition, patch model.TicketPatch) (*model.Ticket, error) {
	var ticket model.Ticket
	query := r.db.WithContext(ctx).
		Model(&ticket).
		Clauses(clause.Returning{}).
		Where("id = ?", id)
	if cond.Status != "" {
		query = query.Where("status = ?", cond.Status)
	}
	if cond.NotWon {
		query = query.Where("won IS NOT TRUE")
	}

	res := query.Updates(patch.Columns())
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPreconditionFailed
	}
	return &ticket, nil
}

type TicketOrder string

const (
	OrderCreatedDesc TicketOrder = "tickets.created_at DESC"
	OrderUpdatedDesc TicketOrder = "tickets.updated_at DESC"
	OrderWonAtDesc   TicketOrder = "tickets.won_at DESC"
)

type TicketListFilter struct {
	Status        *model.TicketStatus
	AssignedTo    *uuid.UUID
	Unassigned    bool
	Search        *string
	CreatedFrom   *time.Time
	CreatedBefore *time.Time
	UpdatedFrom   *time.Time
	UpdatedTo     *time.Time
	WonFrom       *time.Time
	WonTo         *time.Time
	Won           *bool
	ExcludeHidden bool
	HasCustomer   bool
	OrderBy       TicketOrder
}

func (r *TicketRepository) List(ctx context.Context, filter TicketListFilter) ([]model.Ticket, error) {
	var tickets []model.Ticket
	query := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Select("tickets.*").
		Preload("Device").
		Preload("Technician")

	if filter.Status != nil {
		query = query.Where("tickets.status = ?", *filter.Status)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tickets.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Unassigned {
		query = query.Where("tickets.assigned_to IS NULL")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("tickets.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("tickets.created_at < ?", *filter.CreatedBefore)
	}
	if filter.UpdatedFrom != nil {
		query = query.Where("tickets.updated_at >= ?", *filter.UpdatedFrom)
	}
	if filter.UpdatedTo != nil {
		query = query.Where("tickets.updated_at <= ?", *filter.UpdatedTo)
	}
	if filter.Won != nil {
		if *filter.Won {
			query = query.Where("tickets.won = ?", true)
		} else {
			query = query.Where("tickets.won IS NOT TRUE")
		}
	}
	if filter.WonFrom != nil || filter.WonTo != nil {
		query = query.Where("tickets.won_at IS NOT NULL")
	}
	if filter.WonFrom != nil {
		query = query.Where("tickets.won_at >= ?", *filter.WonFrom)
	}
	if filter.WonTo != nil {
		query = query.Where("tickets.won_at <= ?", *filter.WonTo)
	}
	if filter.ExcludeHidden {
		query = query.Where("tickets.won_hidden IS NOT TRUE")
	}
	if filter.HasCustomer {
		query = query.Where("tickets.customer_full_name IS NOT NULL")
	}
	if filter.Search != nil {
		if term := strings.TrimSpace(*filter.Search); term != "" {
			like := "%" + term + "%"
			query = query.
				Joins("LEFT JOIN technicians ON technicians.id = tickets.assigned_to").
				Where(
					"tickets.title ILIKE ? OR tickets.customer_full_name ILIKE ? OR tickets.serial_number ILIKE ? OR tickets.invoice_number ILIKE ? OR technicians.name ILIKE ?",
					like, like, like, like, like,
				)
		}
	}

	order := filter.OrderBy
	if order == "" {
		order = OrderCreatedDesc
	}
	if err := query.Order(string(order)).Find(&tickets).Error; err != nil {
		return nil, err
	}

	return tickets, nil
}
