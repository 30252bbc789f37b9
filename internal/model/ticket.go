package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type WarrantyStatus string

const (
	WarrantyIn      WarrantyStatus = "in_warranty"
	WarrantyOut     WarrantyStatus = "out_of_warranty"
	WarrantyUnknown WarrantyStatus = "unknown"
)

func (w WarrantyStatus) IsValid() bool {
	switch w {
	case WarrantyIn, WarrantyOut, WarrantyUnknown:
		return true
	}
	return false
}

// Known brands offered by the intake form. Any other non-empty value is a
// custom brand and is stored as typed.
const (
	BrandKobra = "KOBRA"
	BrandHagel = "HAGEL"

	BrandCustomSentinel = "custom"
)

type Ticket struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Description string       `gorm:"type:text;not null;default:''" json:"description"`
	Status      TicketStatus `gorm:"type:ticket_status;not null;default:accepted_pending;index" json:"status"`
	Priority    Priority     `gorm:"type:varchar(16);not null;default:medium" json:"priority"`
	DeviceID    *uuid.UUID   `gorm:"type:uuid;index" json:"device_id"`
	AssignedTo  *uuid.UUID   `gorm:"type:uuid;index" json:"assigned_to"`

	SerialNumber   *string `gorm:"type:text" json:"serial_number"`
	ProductType    *string `gorm:"type:text" json:"product_type"`
	Brand          *string `gorm:"type:text" json:"brand"`
	Model          *string `gorm:"type:text" json:"model"`
	ModelNumber    *string `gorm:"type:text" json:"model_number"`
	CustomCode     *string `gorm:"type:text" json:"custom_code"`
	WarrantyStatus *string `gorm:"type:varchar(32)" json:"warranty_status"`

	CustomerFullName  *string `gorm:"type:text" json:"customer_full_name"`
	CustomerPhone     *string `gorm:"type:text" json:"customer_phone"`
	CustomerExtension *string `gorm:"type:text" json:"customer_extension"`
	CustomerEmail     *string `gorm:"type:text" json:"customer_email"`
	CustomerAddress   *string `gorm:"type:text" json:"customer_address"`

	BillingCompanyName *string `gorm:"type:text" json:"billing_company_name"`
	BillingAddress     *string `gorm:"type:text" json:"billing_address"`
	BillingTaxOffice   *string `gorm:"type:text" json:"billing_tax_office"`
	BillingTaxNumber   *string `gorm:"type:text" json:"billing_tax_number"`

	ApprovedLaborCost   *float64 `gorm:"type:numeric(12,2)" json:"approved_labor_cost"`
	ApprovedServiceCost *float64 `gorm:"type:numeric(12,2)" json:"approved_service_cost"`
	InvoiceNumber       *string  `gorm:"type:text" json:"invoice_number"`
	TotalServiceAmount  *float64 `gorm:"type:numeric(12,2)" json:"total_service_amount"`

	Won       bool       `gorm:"not null;default:false;index" json:"won"`
	WonAt     *time.Time `json:"won_at"`
	WonHidden bool       `gorm:"not null;default:false" json:"won_hidden"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Device     *Device     `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	Technician *Technician `gorm:"foreignKey:AssignedTo" json:"technician,omitempty"`
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ServiceAmount is the invoiced total, with an unset amount counted as zero.
func (t Ticket) ServiceAmount() float64 {
	if t.TotalServiceAmount == nil {
		return 0
	}
	return *t.TotalServiceAmount
}

// IsAssignedTo reports whether the ticket is attributed to the given technician.
func (t Ticket) IsAssignedTo(id uuid.UUID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == id
}
