package trm

import (
	"context"
	"net/http"
)

// VerifyKey checks the configured API key against the API.
func (c *Client) VerifyKey(ctx context.Context) (any, error) {
	return c.send(ctx, http.MethodPost, "/auth/verify", nil)
}

func (c *Client) ListAPIKeys(ctx context.Context) (any, error) {
	return c.get(ctx, "/auth/apikeys", nil)
}

func (c *Client) GetAPIKey(ctx context.Context, keyID string) (any, error) {
	path, err := resourcePath("/auth/apikeys/{}", keyID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, nil)
}

// CreateAPIKey posts to /auth/apikey; the API uses the singular path for
// creation only.
func (c *Client) CreateAPIKey(ctx context.Context, data any) (any, error) {
	return c.send(ctx, http.MethodPost, "/auth/apikey", data)
}

func (c *Client) UpdateAPIKey(ctx context.Context, keyID string, data any) (any, error) {
	path, err := resourcePath("/auth/apikeys/{}", keyID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPut, path, data)
}

// RevokeAPIKey sends {"reason": reason}, or {} when reason is empty.
func (c *Client) RevokeAPIKey(ctx context.Context, keyID string, reason string) (any, error) {
	path, err := resourcePath("/auth/apikeys/{}", keyID)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if reason != "" {
		body["reason"] = reason
	}
	return c.send(ctx, http.MethodDelete, path, body)
}

func (c *Client) RotateAPIKey(ctx context.Context, keyID string) (any, error) {
	path, err := resourcePath("/auth/apikeys/{}/rotate", keyID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPost, path, nil)
}

func (c *Client) GetAPIKeyUsage(ctx context.Context, keyID string, query Query) (any, error) {
	path, err := resourcePath("/auth/apikeys/{}/usage", keyID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, query)
}

func (c *Client) GetPermissions(ctx context.Context) (any, error) {
	return c.get(ctx, "/auth/permissions", nil)
}
