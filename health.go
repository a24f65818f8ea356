package trm

import "context"

// Health reports API availability.
func (c *Client) Health(ctx context.Context) (any, error) {
	return c.get(ctx, "/health", nil)
}
