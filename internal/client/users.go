package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/resale/internal/model"
)

// ListUsers returns all active accounts (admin).
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, "/api/admin/user", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns one account (admin).
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/admin/user/%d", id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates an account of any role (admin).
func (c *Client) CreateUser(ctx context.Context, in model.UserInput) (*model.User, error) {
	if err := model.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	var user model.User
	if err := c.do(ctx, http.MethodPost, "/api/admin/user", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser changes an account (admin). An empty password leaves it unchanged.
func (c *Client) UpdateUser(ctx context.Context, id int64, in model.UserInput) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/admin/user/%d", id), in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes an account (admin).
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/user/%d", id), nil, nil)
}
