package client

import (
	"context"
	"net/http"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/models"
)

// Signup creates a resident account. It does not sign in.
func (c *Client) Signup(ctx context.Context, in models.SignupRequest) (*models.User, error) {
	resp, err := c.do(c.request(ctx).SetBody(in), http.MethodPost, "/signup")
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates and makes the returned session current.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.do(c.request(ctx).SetBody(models.LoginRequest{Email: email, Password: password}),
		http.MethodPost, "/login")
	if err != nil {
		return nil, err
	}
	var s Session
	if err := resp.Decode(&s); err != nil {
		return nil, err
	}
	c.SetSession(&s)
	return &s, nil
}

// Logout revokes the current session on the server and clears it locally.
// The local session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.Session() == nil {
		return nil
	}
	_, err := c.do(c.request(ctx), http.MethodPost, "/logout")
	c.SetSession(nil)
	return err
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	if c.Session() == nil {
		return nil, apperrors.NewUnauthenticatedError("not signed in")
	}
	resp, err := c.do(c.request(ctx), http.MethodGet, "/me")
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	resp, err := c.do(c.request(ctx), http.MethodGet, "/users")
	if err != nil {
		return nil, err
	}
	var users []models.User
	return users, resp.Decode(&users)
}

// UpdateUserType changes a user's role. Super admin only.
func (c *Client) UpdateUserType(ctx context.Context, userID string, t models.UserType) (*models.User, error) {
	resp, err := c.do(c.request(ctx).SetBody(models.UpdateTypeRequest{UserID: userID, Type: string(t)}),
		http.MethodPut, "/users/updateType")
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
