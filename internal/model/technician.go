package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvatarColors is the palette a new technician's avatar color is drawn from.
var AvatarColors = []string{"#EF4444", "#10B981", "#F59E0B", "#8B5CF6", "#EC4899", "#06B6D4"}

type Technician struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Email       *string   `gorm:"type:text" json:"email"`
	Specialty   string    `gorm:"type:text;not null" json:"specialty"`
	AvatarColor string    `gorm:"type:varchar(16);not null" json:"avatar_color"`
	Username    *string   `gorm:"type:varchar(64);uniqueIndex" json:"username"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Technician) TableName() string {
	return "technicians"
}

func (t *Technician) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
