package trm

import (
	"context"
	"net/http"
)

func (c *Client) ListCompanies(ctx context.Context, query Query) (any, error) {
	return c.get(ctx, "/companies", query)
}

func (c *Client) GetCompany(ctx context.Context, companyID string) (any, error) {
	path, err := resourcePath("/companies/{}", companyID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, nil)
}

func (c *Client) GetCompanyJobs(ctx context.Context, companyID string, query Query) (any, error) {
	path, err := resourcePath("/companies/{}/jobs", companyID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, path, query)
}

func (c *Client) CreateCompany(ctx context.Context, data any) (any, error) {
	return c.send(ctx, http.MethodPost, "/companies", data)
}

func (c *Client) UpdateCompany(ctx context.Context, companyID string, data any) (any, error) {
	path, err := resourcePath("/companies/{}", companyID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPut, path, data)
}
