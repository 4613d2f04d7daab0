package apiclient

import (
	"context"
	"fmt"
	"net/http"
)

// Viewer is the payload of the identity endpoint.
type Viewer struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type unreadCount struct {
	Count *int `json:"count"`
}

// Me retrieves the identity bound to the client's credential.
// Returns ErrUnauthenticated when the backend reports no active session.
func (c *Client) Me(ctx context.Context) (*Viewer, error) {
	var v Viewer
	if err := c.do(ctx, http.MethodGet, "/me", &v); err != nil {
		return nil, err
	}
	if v.ID == "" {
		return nil, fmt.Errorf("%w: identity without id", ErrMalformedResponse)
	}
	return &v, nil
}

// UnreadCount retrieves the number of unread notifications of the viewer.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var uc unreadCount
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", &uc); err != nil {
		return 0, err
	}
	if uc.Count == nil {
		return 0, fmt.Errorf("%w: missing count", ErrMalformedResponse)
	}
	if *uc.Count < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrMalformedResponse, *uc.Count)
	}
	return *uc.Count, nil
}

// MarkAllRead marks every notification of the viewer as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/read-all", nil)
}
