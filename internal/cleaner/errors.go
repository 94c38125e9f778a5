package cleaner

import (
	"errors"
	"fmt"

	"fhvclean/internal/frame"
	"fhvclean/internal/storage"
)

// Run failures. Every error returned by Run that belongs to one of these
// classes matches it with errors.Is; the backend cause stays in the chain.
var (
	// ErrSourceNotFound means the source table does not resolve.
	ErrSourceNotFound = errors.New("source not found")
	// ErrSchemaMismatch means a renamed or rule column is absent from the source.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrWriteFailure means the destination overwrite failed or wrote an
	// unexpected number of rows.
	ErrWriteFailure = errors.New("write failure")
)

func readError(table string, err error) error {
	if errors.Is(err, storage.ErrTableNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrSourceNotFound, table, err)
	}
	return fmt.Errorf("read %s: %w", table, err)
}

func schemaError(err error) error {
	if errors.Is(err, frame.ErrColumnNotFound) || errors.Is(err, frame.ErrColumnExists) {
		return fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	return fmt.Errorf("transform: %w", err)
}

func writeError(table string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWriteFailure, table, err)
}
