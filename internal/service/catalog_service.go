package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"techservice/internal/model"
	"techservice/internal/utils"
)

// PasswordSetter sets staff login secrets on the auth service.
type PasswordSetter interface {
	SetPassword(ctx context.Context, technicianID, password string) error
}

// CatalogService manages the device catalog and the technician roster.
type CatalogService struct {
	devices     DeviceStore
	technicians TechnicianStore
	passwords   PasswordSetter
	log         zerolog.Logger
	now         func() time.Time
	pickColor   func() string
}

func NewCatalogService(devices DeviceStore, technicians TechnicianStore, passwords PasswordSetter, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		devices:     devices,
		technicians: technicians,
		passwords:   passwords,
		log:         log,
		now:         time.Now,
		pickColor: func() string {
			return model.AvatarColors[rand.IntN(len(model.AvatarColors))]
		},
	}
}

type DeviceInput struct {
	DeviceType string `json:"device_type" validate:"required"`
}

func (s *CatalogService) CreateDevice(ctx context.Context, input DeviceInput) (*model.Device, error) {
	input.DeviceType = strings.TrimSpace(input.DeviceType)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	serial, err := utils.GenerateDeviceSerial(s.now())
	if err != nil {
		return nil, err
	}
	device := &model.Device{DeviceType: input.DeviceType, SerialNumber: serial}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	return device, nil
}

func (s *CatalogService) ListDevices(ctx context.Context) ([]model.Device, error) {
	return s.devices.List(ctx)
}

func (s *CatalogService) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	return notFound(s.devices.Delete(ctx, id))
}

type TechnicianInput struct {
	Name      string `json:"name" validate:"required"`
	Specialty string `json:"specialty" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// CreateTechnician adds a staff member and sets their login password. When
// the password cannot be set the technician is removed again.
func (s *CatalogService) CreateTechnician(ctx context.Context, input TechnicianInput) (*model.Technician, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Specialty = strings.TrimSpace(input.Specialty)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	username := utils.NormalizeUsername(input.Username)
	if username == "" {
		return nil, invalid("username", "is required and may only contain letters, digits and underscores")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	taken, err := s.technicians.UsernameTaken(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, invalid("username", "is already taken")
	}

	technician := &model.Technician{
		Name:        input.Name,
		Specialty:   input.Specialty,
		Email:       optionalString(input.Email),
		Username:    &username,
		AvatarColor: s.pickColor(),
		Active:      true,
	}
	if err := s.technicians.Create(ctx, technician); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("username", "is already taken")
		}
		return nil, fmt.Errorf("create technician: %w", err)
	}

	if err := s.passwords.SetPassword(ctx, technician.ID.String(), input.Password); err != nil {
		if delErr := s.technicians.Delete(ctx, technician.ID); delErr != nil {
			s.log.Error().
				Err(delErr).
				Str("technician_id", technician.ID.String()).
				Msg("failed to remove technician after password error")
		}
		return nil, fmt.Errorf("set technician password: %w", err)
	}

	s.log.Info().
		Str("technician_id", technician.ID.String()).
		Str("username", username).
		Msg("technician created")
	return technician, nil
}

func (s *CatalogService) SetTechnicianPassword(ctx context.Context, id uuid.UUID, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	if _, err := s.technicians.GetByID(ctx, id); err != nil {
		return notFound(err)
	}
	if err := s.passwords.SetPassword(ctx, id.String(), password); err != nil {
		return fmt.Errorf("set technician password: %w", err)
	}
	return nil
}

func (s *CatalogService) SetTechnicianActive(ctx context.Context, id uuid.UUID, active bool) error {
	return notFound(s.technicians.SetActive(ctx, id, active))
}

func (s *CatalogService) ListTechnicians(ctx context.Context, activeOnly bool) ([]model.Technician, error) {
	return s.technicians.List(ctx, activeOnly)
}

// DeleteTechnician removes a technician. Their tickets stay and become
// unassigned.
func (s *CatalogService) DeleteTechnician(ctx context.Context, id uuid.UUID) error {
	return notFound(s.technicians.Delete(ctx, id))
}

// notFound maps the store's missing-row error to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
