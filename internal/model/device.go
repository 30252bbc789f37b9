package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device is a catalog entry for a class of serviceable equipment.
type Device struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	DeviceType   string    `gorm:"type:text;not null" json:"device_type"`
	SerialNumber string    `gorm:"type:text;not null;uniqueIndex" json:"serial_number"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Device) TableName() string {
	return "devices"
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
