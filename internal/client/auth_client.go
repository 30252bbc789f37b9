package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"techservice/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfigured      = errors.New("auth service URL is not configured")
)

const (
	UserTypeAdmin = "admin"
	UserTypeStaff = "staff"
)

// Identity is the profile the auth service returns on a successful login.
type Identity struct {
	ID          string  `json:"id"`
	Email       *string `json:"email,omitempty"`
	Username    *string `json:"username,omitempty"`
	Name        string  `json:"name"`
	Specialty   *string `json:"specialty,omitempty"`
	AvatarColor *string `json:"avatar_color,omitempty"`
	Type        string  `json:"type"`
}

type loginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

type setPasswordRequest struct {
	TechnicianID string `json:"technicianId"`
	Password     string `json:"password"`
}

type authResponse struct {
	Success bool      `json:"success"`
	User    *Identity `json:"user,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// AuthClient talks to the hosted auth service that owns admin and staff
// passwords.
type AuthClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewAuthClient(cfg *config.Config) *AuthClient {
	return &AuthClient{
		baseURL: strings.TrimRight(cfg.ExternalServices.AuthServiceURL, "/"),
		token:   cfg.ExternalServices.AuthServiceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

// Login verifies credentials. Admins log in by email, staff by username; the
// credential goes into the matching field.
func (c *AuthClient) Login(ctx context.Context, credential, password, userType string) (*Identity, error) {
	req := loginRequest{Password: password, UserType: userType}
	if userType == UserTypeAdmin {
		req.Email = credential
	} else {
		req.Username = credential
	}

	var resp authResponse
	status, err := c.post(ctx, "/login", req, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if status != http.StatusOK || !resp.Success || resp.User == nil {
		return nil, fmt.Errorf("auth service returned status %d: %s", status, resp.Error)
	}
	return resp.User, nil
}

// SetPassword sets the login secret of a technician.
func (c *AuthClient) SetPassword(ctx context.Context, technicianID, password string) error {
	var resp authResponse
	status, err := c.post(ctx, "/set-password", setPasswordRequest{TechnicianID: technicianID, Password: password}, &resp)
	if err != nil {
		return err
	}
	if status != http.StatusOK || !resp.Success {
		return fmt.Errorf("auth service returned status %d: %s", status, resp.Error)
	}
	return nil
}

// post sends body as JSON and decodes the reply into out. Network errors are
// retried with a linear backoff; HTTP error statuses are returned as is.
func (c *AuthClient) post(ctx context.Context, path string, body interface{}, out *authResponse) (int, error) {
	if c.baseURL == "" {
		return 0, ErrNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if attempt == c.maxRetries-1 {
			return 0, fmt.Errorf("failed to execute request after %d attempts: %w", c.maxRetries, lastErr)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.backoff):
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
