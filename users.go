package trm

import (
	"context"
	"net/http"
)

func (c *Client) GetCurrentUser(ctx context.Context) (any, error) {
	return c.get(ctx, "/users/me", nil)
}

func (c *Client) UpdateCurrentUser(ctx context.Context, data any) (any, error) {
	return c.send(ctx, http.MethodPut, "/users/me", data)
}

func (c *Client) GetCurrentUserReferrals(ctx context.Context, query Query) (any, error) {
	return c.get(ctx, "/users/me/referrals", query)
}

func (c *Client) GetCurrentUserStats(ctx context.Context) (any, error) {
	return c.get(ctx, "/users/me/stats", nil)
}

func (c *Client) GetUser(ctx context.Context, userID string) (any, error) {
	path, err := resourcePath("/users/{}", userID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, nil)
}
