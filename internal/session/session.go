// Package session keeps the logged-in identity of a portal user. A session
// is a signed access token; logging out revokes its token id until the token
// would have expired anyway.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"techservice/internal/auth"
	"techservice/internal/model"
)

var ErrRevoked = errors.New("session has been revoked")

// Revocations stores revoked token ids.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Principal model.Principal `json:"-"`
	tokenID   string
}

type Manager struct {
	issuer      *auth.Issuer
	parser      *auth.Parser
	revocations Revocations
}

func NewManager(issuer *auth.Issuer, parser *auth.Parser, revocations Revocations) *Manager {
	return &Manager{issuer: issuer, parser: parser, revocations: revocations}
}

// Save opens a session for principal.
func (m *Manager) Save(principal model.Principal) (*Session, error) {
	if principal.UserID == uuid.Nil || !principal.Role.IsValid() {
		return nil, fmt.Errorf("save session: invalid principal")
	}
	token, claims, err := m.issuer.Issue(principal)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Principal: principal,
		tokenID:   claims.ID,
	}, nil
}

// Load verifies token and returns its session.
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	claims, err := m.parser.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}
	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Principal: claims.Principal(),
		tokenID:   claims.ID,
	}, nil
}

// Clear ends the session carried by token. Clearing an already cleared
// session is not an error.
func (m *Manager) Clear(ctx context.Context, token string) error {
	s, err := m.Load(ctx, token)
	if err != nil {
		if errors.Is(err, ErrRevoked) {
			return nil
		}
		return err
	}
	return m.revocations.Revoke(ctx, s.tokenID, s.ExpiresAt)
}
