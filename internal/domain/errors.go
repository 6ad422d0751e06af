// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors returned by the playback core.
var (
	// ErrPartNotFound is returned when a playable entity cannot be located.
	ErrPartNotFound = errors.New("part not found")

	// ErrPartNotCreated is returned when an operation requires a fully
	// materialized part but the part is still a placeholder.
	ErrPartNotCreated = errors.New("part not created yet")

	// ErrNotInPlaylist is returned when a loop-range or bookmark operation is
	// invoked on a part that is not present in the playlist.
	ErrNotInPlaylist = errors.New("part is not in the playlist")

	// ErrInvalidIndex is returned when a playlist or part index is out of bounds.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrDuplicateEntry is returned when adding an entry already present in
	// the playlist.
	ErrDuplicateEntry = errors.New("entry already in playlist")

	// ErrInvalidVolume is returned when the volume is out of valid range.
	ErrInvalidVolume = errors.New("invalid volume: must be >= 0.0")

	// ErrInvalidPosition is returned when seeking to a negative or
	// out-of-range position.
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrUnsupportedFileType is returned when a file extension is not on the
	// supported allow-list.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrEmptyFolder is returned when an audiobook folder contains no
	// supported audio files.
	ErrEmptyFolder = errors.New("folder contains no supported audio files")

	// ErrStorageNotFound is returned by storage resolvers when a token cannot
	// be resolved to a readable resource. The controller treats this as a
	// silent no-op, not a failure.
	ErrStorageNotFound = errors.New("storage resource not found")

	// ErrGraphNotStarted is returned when a node operation is attempted
	// before the audio graph has been started.
	ErrGraphNotStarted = errors.New("audio graph not started")

	// ErrInvalidNodeHandle is returned when a graph operation references an
	// unknown node.
	ErrInvalidNodeHandle = errors.New("invalid graph node handle")

	// ErrMetadataWriteUnsupported is returned by metadata providers that can
	// only read tags.
	ErrMetadataWriteUnsupported = errors.New("metadata provider does not support writing")

	// ErrRestoreCancelled is returned when a playlist restore is cancelled
	// cooperatively.
	ErrRestoreCancelled = errors.New("restore cancelled")

	// ErrShuttingDown is returned when an operation races engine shutdown.
	ErrShuttingDown = errors.New("engine is shutting down")
)

// GraphError wraps a failure of the audio rendering graph. Graph and
// output-device creation failures are fatal: no audio hardware means no
// playback until the operation is retried.
type GraphError struct {
	Op      string // Operation that failed (e.g. "start", "create_node")
	Fatal   bool   // True for graph/device initialization failures
	Message string
	Err     error
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("audio graph %s failed (fatal): %s", e.Op, e.Message)
	}
	return fmt.Sprintf("audio graph %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *GraphError) Unwrap() error {
	return e.Err
}

// NewGraphError creates a new GraphError.
func NewGraphError(op, message string, fatal bool, err error) *GraphError {
	return &GraphError{Op: op, Fatal: fatal, Message: message, Err: err}
}

// IsFatalGraphError reports whether err is a fatal audio graph failure. The
// caller surfaces these distinctly from recoverable no-ops.
func IsFatalGraphError(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Fatal
}

// ValidationError represents a validation failure during entity creation.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ServiceError represents an error from a service-layer operation.
type ServiceError struct {
	Service string
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Message: message, Err: err}
}
