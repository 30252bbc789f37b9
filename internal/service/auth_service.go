package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"techservice/internal/client"
	"techservice/internal/model"
	"techservice/internal/session"
)

// Authenticator verifies portal credentials.
type Authenticator interface {
	Login(ctx context.Context, credential, password, userType string) (*client.Identity, error)
}

// SessionStore opens and closes portal sessions.
type SessionStore interface {
	Save(principal model.Principal) (*session.Session, error)
	Clear(ctx context.Context, token string) error
}

type AuthService struct {
	authenticator Authenticator
	sessions      SessionStore
	technicians   TechnicianStore
	log           zerolog.Logger
}

func NewAuthService(authenticator Authenticator, sessions SessionStore, technicians TechnicianStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		sessions:      sessions,
		technicians:   technicians,
		log:           log,
	}
}

type LoginInput struct {
	Credential string `json:"credential" validate:"required"`
	Password   string `json:"password" validate:"required"`
	UserType   string `json:"user_type" validate:"required,oneof=admin staff"`
}

type LoginResult struct {
	Session *session.Session `json:"session"`
	User    *client.Identity `json:"user"`
}

// Login checks credentials with the auth service and opens a session. Staff
// must belong to an active technician.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	input.Credential = strings.TrimSpace(input.Credential)
	input.UserType = strings.ToLower(strings.TrimSpace(input.UserType))
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	identity, err := s.authenticator.Login(ctx, input.Credential, input.Password, input.UserType)
	if err != nil {
		if errors.Is(err, client.ErrInvalidCredentials) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	userID, err := uuid.Parse(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("login: auth service returned invalid user id %q", identity.ID)
	}

	principal := model.Principal{UserID: userID, Role: model.Role(input.UserType), Name: identity.Name}
	if principal.IsStaff() {
		tech, err := s.technicians.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(notFound(err), ErrNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, fmt.Errorf("load technician: %w", err)
		}
		if !tech.Active {
			return nil, ErrUnauthorized
		}
		principal.Name = tech.Name
	}

	sess, err := s.sessions.Save(principal)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("user_id", userID.String()).
		Str("role", string(principal.Role)).
		Msg("user logged in")
	return &LoginResult{Session: sess, User: identity}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Clear(ctx, token)
}
