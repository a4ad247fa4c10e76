package vocab

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a StorageError.
type ErrorKind int

const (
	// IOFailure means the store could not be opened, read, or written.
	IOFailure ErrorKind = iota + 1
	// SchemaMismatch means the existing store has an incompatible column or field set.
	SchemaMismatch
	// NotFound means no record has the requested ID.
	NotFound
)

func (k ErrorKind) String() string {
	switch k {
	case IOFailure:
		return "I/O failure"
	case SchemaMismatch:
		return "schema mismatch"
	case NotFound:
		return "record not found"
	default:
		return "unknown storage error"
	}
}

// Sentinels for errors.Is against a *StorageError of the matching kind.
var (
	ErrIOFailure      = errors.New("storage I/O failure")
	ErrSchemaMismatch = errors.New("storage schema mismatch")
	ErrNotFound       = errors.New("record not found")
)

// StorageError reports a failed store operation. The store is left in its
// prior state whenever a StorageError is returned.
type StorageError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrIOFailure:
		return e.Kind == IOFailure
	case ErrSchemaMismatch:
		return e.Kind == SchemaMismatch
	case ErrNotFound:
		return e.Kind == NotFound
	}
	return false
}

func ioFailure(path string, err error) error {
	return &StorageError{Kind: IOFailure, Path: path, Err: err}
}

func schemaMismatch(path string, format string, args ...any) error {
	return &StorageError{Kind: SchemaMismatch, Path: path, Err: fmt.Errorf(format, args...)}
}

func notFound(path, id string) error {
	return &StorageError{Kind: NotFound, Path: path, Err: fmt.Errorf("id %q", id)}
}

// errIncompatible marks codec errors that describe a schema mismatch rather
// than an unreadable file.
var errIncompatible = errors.New("incompatible store layout")
