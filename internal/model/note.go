package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultNoteAuthor labels notes written without a known author name.
const DefaultNoteAuthor = "Staff"

// Note is an append-only comment on a ticket.
type Note struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	TicketID  uuid.UUID `gorm:"type:uuid;not null;index" json:"ticket_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedBy string    `gorm:"type:text;not null;default:'Staff'" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Note) TableName() string {
	return "ticket_notes"
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
