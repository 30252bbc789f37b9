package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"techservice/internal/model"
)

func newCatalog(techs ...model.Technician) (*CatalogService, *fakeDeviceStore, *fakeTechnicianStore, *fakePasswords) {
	devices := newFakeDeviceStore()
	technicians := newFakeTechnicianStore(techs...)
	passwords := &fakePasswords{}
	svc := NewCatalogService(devices, technicians, passwords, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	svc.pickColor = func() string { return model.AvatarColors[0] }
	return svc, devices, technicians, passwords
}

func TestCreateDevice(t *testing.T) {
	svc, devices, _, _ := newCatalog()

	device, err := svc.CreateDevice(context.Background(), DeviceInput{DeviceType: " Floor scrubber "})

	require.NoError(t, err)
	assert.Equal(t, "Floor scrubber", device.DeviceType)
	assert.True(t, strings.HasPrefix(device.SerialNumber, "DEV-"))
	assert.Len(t, devices.rows, 1)

	_, err = svc.CreateDevice(context.Background(), DeviceInput{DeviceType: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteDevice_NotFound(t *testing.T) {
	svc, _, _, _ := newCatalog()
	assert.ErrorIs(t, svc.DeleteDevice(context.Background(), uuid.New()), ErrNotFound)
}

func TestCreateTechnician(t *testing.T) {
	svc, _, technicians, passwords := newCatalog()

	tech, err := svc.CreateTechnician(context.Background(), TechnicianInput{
		Name:      "Ayşe Kaya",
		Specialty: "Pumps",
		Username:  " Ayse.Kaya ",
		Password:  "secret123",
	})

	require.NoError(t, err)
	require.NotNil(t, tech.Username)
	assert.Equal(t, "aysekaya", *tech.Username)
	assert.True(t, tech.Active)
	assert.Equal(t, model.AvatarColors[0], tech.AvatarColor)
	assert.Nil(t, tech.Email)
	assert.Equal(t, "secret123", passwords.calls[tech.ID.String()])
	assert.Contains(t, technicians.rows, tech.ID)
}

func TestCreateTechnician_Validation(t *testing.T) {
	taken := "mert"
	existing := model.Technician{ID: uuid.New(), Name: "Mert", Username: &taken, Active: true}

	tests := []struct {
		name  string
		input TechnicianInput
		field string
	}{
		{name: "missing name", input: TechnicianInput{Specialty: "x", Username: "a", Password: "secret123"}, field: "name"},
		{name: "bad email", input: TechnicianInput{Name: "A", Specialty: "x", Email: "a@", Username: "a", Password: "secret123"}, field: "email"},
		{name: "empty username", input: TechnicianInput{Name: "A", Specialty: "x", Username: "!!", Password: "secret123"}, field: "username"},
		{name: "short password", input: TechnicianInput{Name: "A", Specialty: "x", Username: "a", Password: "short"}, field: "password"},
		{name: "taken username", input: TechnicianInput{Name: "A", Specialty: "x", Username: "MERT", Password: "secret123"}, field: "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, technicians, passwords := newCatalog(existing)

			_, err := svc.CreateTechnician(context.Background(), tt.input)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Len(t, technicians.rows, 1)
			assert.Empty(t, passwords.calls)
		})
	}
}

func TestCreateTechnician_DuplicateKeyFromStore(t *testing.T) {
	svc, _, technicians, _ := newCatalog()
	technicians.createErr = gorm.ErrDuplicatedKey

	_, err := svc.CreateTechnician(context.Background(), TechnicianInput{Name: "A", Specialty: "x", Username: "a", Password: "secret123"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "username", verr.Field)
}

func TestCreateTechnician_PasswordFailureRemovesTechnician(t *testing.T) {
	svc, _, technicians, passwords := newCatalog()
	passwords.err = errors.New("auth service unavailable")

	_, err := svc.CreateTechnician(context.Background(), TechnicianInput{Name: "A", Specialty: "x", Username: "a", Password: "secret123"})

	require.Error(t, err)
	assert.Empty(t, technicians.rows)
	assert.Len(t, technicians.deleted, 1)
}

func TestTechnicianRoster(t *testing.T) {
	tech := model.Technician{ID: uuid.New(), Name: "Mert", Active: true}
	svc, _, _, passwords := newCatalog(tech)
	ctx := context.Background()

	require.NoError(t, svc.SetTechnicianActive(ctx, tech.ID, false))
	active, err := svc.ListTechnicians(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := svc.ListTechnicians(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, svc.SetTechnicianPassword(ctx, tech.ID, "short"), ErrInvalidInput)
	assert.ErrorIs(t, svc.SetTechnicianPassword(ctx, uuid.New(), "longenough"), ErrNotFound)
	require.NoError(t, svc.SetTechnicianPassword(ctx, tech.ID, "longenough"))
	assert.Equal(t, "longenough", passwords.calls[tech.ID.String()])

	assert.ErrorIs(t, svc.SetTechnicianActive(ctx, uuid.New(), true), ErrNotFound)
	require.NoError(t, svc.DeleteTechnician(ctx, tech.ID))
	assert.ErrorIs(t, svc.DeleteTechnician(ctx, tech.ID), ErrNotFound)
}
