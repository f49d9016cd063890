package engine

import (
	"errors"
	"fmt"
)

// Structural conditions. These are detected before any write is issued.
var (
	// ErrNoPrimaryKey is returned by mutating operations on a table without a primary key.
	ErrNoPrimaryKey = errors.New("table has no primary key")

	// ErrStaleRow is returned when the anchor key no longer exists in the store.
	ErrStaleRow = errors.New("row no longer exists")

	// ErrDuplicateKey is returned when a primary key rename collides with an existing row.
	ErrDuplicateKey = errors.New("primary key already exists")

	// ErrNotFound is returned when a delete or lookup target is missing.
	ErrNotFound = errors.New("record not found")

	// ErrUnchanged marks a benign no-op edit.
	ErrUnchanged = errors.New("value unchanged")

	// ErrStore matches every *StoreError.
	ErrStore = errors.New("store error")
)

// Validation errors.
var (
	ErrUnknownTable    = errors.New("unknown table")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNoKeys          = errors.New("no keys given")
	ErrNothingToSearch = errors.New("nothing to search")
	ErrNoColumns       = errors.New("no columns to search")
	ErrInvalidValue    = errors.New("invalid value")
	ErrBlankKey        = errors.New("primary key cannot be blank")
)

// DuplicateKeyError reports a rename collision.
// Old is the validated key the caller must revert its display to.
type DuplicateKeyError struct {
	Table string
	Old   any
	New   any
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("primary key %v already exists in %s (keeping %v)", e.New, e.Table, e.Old)
}

// Is reports whether target is ErrDuplicateKey.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// StoreError wraps a connectivity or constraint failure raised by the backend.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the backend error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrUnknownColumn, ErrNoKeys, ErrNothingToSearch, ErrNoColumns,
		ErrInvalidValue, ErrBlankKey, ErrEmptyQuery,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
