package webhooks

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-trm/core"
)

func webhookError(message string, category goerrors.Category, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(core.HTTPStatusForCategory(category)).
		WithTextCode(core.TextCodeForCategory(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func webhookWrapError(source error, category goerrors.Category, message string, metadata map[string]any) error {
	if source == nil {
		return webhookError(message, category, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(core.HTTPStatusForCategory(category)).
		WithTextCode(core.TextCodeForCategory(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func signatureError(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ErrorTextUnauthorized)
}
