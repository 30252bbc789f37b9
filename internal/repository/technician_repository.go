package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"techservice/internal/model"
)

type TechnicianRepository struct {
	db *gorm.DB
}

func NewTechnicianRepository(db *gorm.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

func (r *TechnicianRepository) Create(ctx context.Context, technician *model.Technician) error {
	return r.db.WithContext(ctx).Create(technician).Error
}

func (r *TechnicianRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Technician, error) {
	var technician model.Technician
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&technician).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &technician, nil
}

func (r *TechnicianRepository) List(ctx context.Context, activeOnly bool) ([]model.Technician, error) {
	var technicians []model.Technician
	query := r.db.WithContext(ctx).Model(&model.Technician{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("name ASC").Find(&technicians).Error
	return technicians, err
}

func (r *TechnicianRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Technician{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}

func (r *TechnicianRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.Technician{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TechnicianRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Technician{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
