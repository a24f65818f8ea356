package trm

import (
	"context"
	"net/http"
)

func (c *Client) ListReferrals(ctx context.Context, query Query) (any, error) {
	return c.get(ctx, "/referrals", query)
}

func (c *Client) GetReferral(ctx context.Context, referralID string) (any, error) {
	path, err := resourcePath("/referrals/{}", referralID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, nil)
}

func (c *Client) CreateReferral(ctx context.Context, data any) (any, error) {
	return c.send(ctx, http.MethodPost, "/referrals", data)
}

// UpdateReferralStatus sends {"status": status}, adding notes when non-empty.
func (c *Client) UpdateReferralStatus(ctx context.Context, referralID string, status string, notes string) (any, error) {
	path, err := resourcePath("/referrals/{}/status", referralID)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"status": status}
	if notes != "" {
		body["notes"] = notes
	}
	return c.send(ctx, http.MethodPatch, path, body)
}

func (c *Client) GetReferralTracking(ctx context.Context, referralID string) (any, error) {
	path, err := resourcePath("/referrals/{}/tracking", referralID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, nil)
}
