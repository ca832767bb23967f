package services

import (
	"errors"

	"github.com/Dias221467/connections-chat/internal/repository"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// storeError maps repository sentinels onto the service error taxonomy.
func storeError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.Wrap(apperrors.CodeAlreadyExists, "resource already exists", err)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Internal("store failure", err)
	}
}

// ParseID converts a hex id from the wire, reporting InvalidArgument for
// missing or malformed values.
func ParseID(hex, field string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, apperrors.InvalidArg(field + " is required")
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidArg(field + " is not a valid id")
	}
	return id, nil
}
