package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techservice/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	principal := model.Principal{UserID: uuid.New(), Role: model.RoleStaff, Name: "Ayşe"}
	token, issued, err := NewIssuer("secret", time.Hour).Issue(principal)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := NewParser("secret").Parse(token)
	require.NoError(t, err)
	assert.Equal(t, principal, claims.Principal())
	assert.Equal(t, principal.UserID.String(), claims.Subject)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestParse_Rejects(t *testing.T) {
	principal := model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
	past := time.Now().Add(-2 * time.Hour)

	expired, _, err := NewIssuer("secret", time.Hour).WithClock(func() time.Time { return past }).Issue(principal)
	require.NoError(t, err)
	valid, _, err := NewIssuer("secret", time.Hour).Issue(principal)
	require.NoError(t, err)
	badRole, _, err := NewIssuer("secret", time.Hour).Issue(model.Principal{UserID: uuid.New(), Role: "driver"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "expired", token: expired, secret: "secret", wantErr: ErrTokenExpired},
		{name: "wrong secret", token: valid, secret: "other", wantErr: ErrTokenInvalid},
		{name: "garbage", token: "not-a-token", secret: "secret", wantErr: ErrTokenInvalid},
		{name: "unknown role", token: badRole, secret: "secret", wantErr: ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(tt.secret).Parse(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
