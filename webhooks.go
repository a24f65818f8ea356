package trm

import (
	"context"
	"net/http"
)

func (c *Client) ListWebhooks(ctx context.Context, query Query) (any, error) {
	return c.get(ctx, "/webhooks", query)
}

func (c *Client) GetWebhook(ctx context.Context, webhookID string) (any, error) {
	path, err := resourcePath("/webhooks/{}", webhookID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, nil)
}

func (c *Client) CreateWebhook(ctx context.Context, data any) (any, error) {
	return c.send(ctx, http.MethodPost, "/webhooks", data)
}

func (c *Client) UpdateWebhook(ctx context.Context, webhookID string, data any) (any, error) {
	path, err := resourcePath("/webhooks/{}", webhookID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPut, path, data)
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) (any, error) {
	path, err := resourcePath("/webhooks/{}", webhookID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodDelete, path, nil)
}

// TestWebhook asks the API to send a test delivery to the webhook endpoint.
func (c *Client) TestWebhook(ctx context.Context, webhookID string) (any, error) {
	path, err := resourcePath("/webhooks/{}/test", webhookID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPost, path, nil)
}

func (c *Client) GetWebhookDeliveries(ctx context.Context, webhookID string, query Query) (any, error) {
	path, err := resourcePath("/webhooks/{}/deliveries", webhookID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, query)
}

func (c *Client) GetDelivery(ctx context.Context, webhookID string, deliveryID string) (any, error) {
	path, err := resourcePath("/webhooks/{}/deliveries/{}", webhookID, deliveryID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, nil)
}

// GetWebhookEvents lists the event names a webhook can subscribe to.
func (c *Client) GetWebhookEvents(ctx context.Context) (any, error) {
	return c.get(ctx, "/webhooks/events/list", nil)
}
