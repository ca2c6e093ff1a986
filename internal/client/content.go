package client

import (
	"context"
	"net/http"

	"barangay-portal/internal/common/validation"
	"barangay-portal/internal/models"

	"github.com/google/uuid"
)

func (c *Client) ListAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	resp, err := c.do(c.request(ctx), http.MethodGet, "/announcements")
	if err != nil {
		return nil, err
	}
	var out []models.Announcement
	return out, resp.Decode(&out)
}

func (c *Client) Homepage(ctx context.Context) (models.Homepage, error) {
	resp, err := c.do(c.request(ctx), http.MethodGet, "/homepage")
	if err != nil {
		return nil, err
	}
	var page models.Homepage
	return page, resp.Decode(&page)
}

// SendContact validates and posts a contact-form message.
func (c *Client) SendContact(ctx context.Context, msg models.ContactMessage) (string, error) {
	check := validation.NewChecker().
		Required("name", msg.Name).
		Email("email", msg.Email).
		Required("message", msg.Message)
	if msg.Phone != "" {
		check.Phone("phone", msg.Phone)
	}
	if err := check.Err(); err != nil {
		return "", err
	}
	resp, err := c.do(c.request(ctx).
		SetHeader("Idempotency-Key", uuid.New().String()).
		SetBody(msg), http.MethodPost, "/contact")
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}
