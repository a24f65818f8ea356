package transport

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-trm/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// invalidResponseError marks a 2xx response whose body could not be decoded.
// It is retried like any other transport failure.
func invalidResponseError(source error, metadata map[string]any) error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, "transport: decode response body").
		WithCode(502).
		WithTextCode(core.ErrorTextInvalidResponse)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	return core.TextCodeForCategory(category)
}
