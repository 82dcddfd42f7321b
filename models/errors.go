// Package models holds the service layer that sits between handlers and the
// stores. Each subpackage owns one resource.
package models

import (
	"errors"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	istore "github.com/NomadCrew/nomad-budget-backend/internal/store"
)

// MapStoreError translates a store error for the HTTP layer. notFound builds
// the error returned for istore.ErrNotFound.
func MapStoreError(err error, notFound func() *apperrors.AppError) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, istore.ErrNotFound):
		return notFound()
	case errors.Is(err, istore.ErrConflict):
		return apperrors.NewConflictError("Resource already exists", err.Error())
	case errors.Is(err, istore.ErrUnavailable):
		return apperrors.StoreUnavailable(err)
	default:
		return apperrors.NewDatabaseError(err)
	}
}
