package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	apperrors "pair-chat/errors"
)

// Open opens (or creates) the Badger directory backing every repository.
func Open(path string, debug bool) (*badger.DB, error) {
	options := badger.DefaultOptions(path)
	if debug {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return badger.Open(options)
}

// OpenReadOnly opens an existing Badger directory without taking the write lock.
func OpenReadOnly(path string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil))
}

// mapBadgerError turns Badger failures into the application error taxonomy.
func mapBadgerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrPersistence),
		errors.Is(err, apperrors.ErrUserAlreadyExists):
		return err
	case errors.Is(err, badger.ErrConflict):
		return apperrors.ErrConflict
	case errors.Is(err, badger.ErrKeyNotFound):
		return apperrors.ErrNotFound
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrPersistence, err)
	}
}
