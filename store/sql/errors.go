package sqlstore

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-trm/core"
)

func storeError(message string, category goerrors.Category, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(core.HTTPStatusForCategory(category)).
		WithTextCode(core.TextCodeForCategory(category))
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func storeWrapError(source error, message string, metadata map[string]any) error {
	if source == nil {
		return nil
	}
	err := goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(core.HTTPStatusForCategory(goerrors.CategoryInternal)).
		WithTextCode(core.ErrorTextInternal)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}
