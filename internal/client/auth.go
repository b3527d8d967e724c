package client

import (
	"context"
	"net/http"

	"github.com/erazemk/resale/internal/model"
)

// Register creates an account and returns the backend's message.
func (c *Client) Register(ctx context.Context, reg model.Registration) (string, error) {
	if err := reg.Validate(); err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", reg, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Login exchanges credentials for a token and, when the backend sends it,
// the account snapshot.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the current token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// ChangePassword changes the caller's own password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	if err := model.ValidatePassword(next); err != nil {
		return err
	}
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.do(ctx, http.MethodPut, "/api/auth/password", body, nil)
}
