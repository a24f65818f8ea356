package trm

import (
	"context"
	"net/http"
)

func (c *Client) ListJobs(ctx context.Context, query Query) (any, error) {
	return c.get(ctx, "/jobs", query)
}

func (c *Client) GetJob(ctx context.Context, jobID string) (any, error) {
	path, err := resourcePath("/jobs/{}", jobID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, nil)
}

func (c *Client) CreateJob(ctx context.Context, data any) (any, error) {
	return c.send(ctx, http.MethodPost, "/jobs", data)
}

func (c *Client) UpdateJob(ctx context.Context, jobID string, data any) (any, error) {
	path, err := resourcePath("/jobs/{}", jobID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPut, path, data)
}

func (c *Client) DeleteJob(ctx context.Context, jobID string) (any, error) {
	path, err := resourcePath("/jobs/{}", jobID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodDelete, path, nil)
}

func (c *Client) GetRelatedJobs(ctx context.Context, jobID string, query Query) (any, error) {
	path, err := resourcePath("/jobs/{}/related", jobID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, query)
}
