package catalog

import (
	"errors"
	"fmt"

	"github.com/erazemk/noleggio/internal/model"
)

// ValidationError is a field that failed the form's shallow checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UploadError means the staged image could not be stored. No row was written.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }

// WriteError means the row insert, update or delete failed. Orphan names an
// object uploaded for this submission that is now referenced by nothing.
type WriteError struct {
	Op     string
	Err    error
	Orphan string
}

func (e *WriteError) Error() string { return e.Err.Error() }
func (e *WriteError) Unwrap() error { return e.Err }

// CleanupError means the row write succeeded but an image it no longer
// references could not be removed. Only returned under StrictCleanup.
type CleanupError struct {
	Object string
	Err    error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("removing image %s: %v", e.Object, e.Err)
}
func (e *CleanupError) Unwrap() error { return e.Err }

// FetchErrorCode classifies a failed listing.
type FetchErrorCode int

const (
	// FetchFailed is any failure other than a missing table.
	FetchFailed FetchErrorCode = iota
	// MissingTable means the backing table has not been created yet.
	MissingTable
)

// FetchError is the error state of a Listing.
type FetchError struct {
	Code FetchErrorCode
	Kind model.Kind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Kind, e.Err)
}
func (e *FetchError) Unwrap() error { return e.Err }

// Message is the text shown to the operator.
func (e *FetchError) Message() string {
	if e.Code == MissingTable {
		return fmt.Sprintf("La tabella %s non esiste ancora. Esegui \"noleggio migrate\" per creare lo schema del database.", e.Kind.Table())
	}
	return "Impossibile caricare i dati. Riprova."
}

// Retryable reports whether retrying the fetch can help without operator action.
func (e *FetchError) Retryable() bool {
	return e.Code == FetchFailed
}

// IsUserError reports whether err stems from bad input rather than a
// failing backend.
func IsUserError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
