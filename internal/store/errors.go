package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pandoras-vault/apiserver/internal/errs"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqSerializationFail   = "40001"
)

// mapError translates driver errors into the shared sentinels so callers can
// branch with errors.Is without importing lib/pq.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", errs.ErrTransient, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", errs.ErrAlreadyExists, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", errs.ErrNotFound, pqErr.Constraint)
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", errs.ErrValidation, pqErr.Constraint)
		case pqSerializationFail:
			return fmt.Errorf("%w: %v", errs.ErrConflict, err)
		}
	}
	return err
}
