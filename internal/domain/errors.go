package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMapping signals a record/schema mismatch for a single document.
	ErrMapping = errors.New("mapping error")
	// ErrTranslation signals a malformed query, detected before any network call.
	ErrTranslation = errors.New("translation error")
	// ErrTransport signals a network or HTTP failure talking to the search engine.
	ErrTransport = errors.New("transport error")
	// ErrParse signals a malformed search engine response.
	ErrParse = errors.New("parse error")

	// ErrRecordNotFound signals a missing record in the primary store.
	ErrRecordNotFound = errors.New("record not found")
	// ErrUnknownType signals a record type with no configured schema.
	ErrUnknownType = errors.New("unknown record type")
	// ErrInvalidRecord signals a record that fails basic validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrRebuildRunning signals a rebuild of the same type already holding the lock.
	ErrRebuildRunning = errors.New("rebuild already running")
)

// MappingError describes why a record could not be turned into a document.
type MappingError struct {
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	if e.Field == "" {
		return ErrMapping.Error() + ": " + e.Reason
	}
	return fmt.Sprintf("%s: field %q: %s", ErrMapping.Error(), e.Field, e.Reason)
}

func (e *MappingError) Unwrap() error { return ErrMapping }

// NewMappingError creates a MappingError for field.
func NewMappingError(field, format string, args ...any) error {
	return &MappingError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TranslationError describes a query that cannot be rendered.
type TranslationError struct {
	Reason string
}

func (e *TranslationError) Error() string { return ErrTranslation.Error() + ": " + e.Reason }
func (e *TranslationError) Unwrap() error { return ErrTranslation }

// NewTranslationError creates a TranslationError.
func NewTranslationError(format string, args ...any) error {
	return &TranslationError{Reason: fmt.Sprintf(format, args...)}
}

// TransportError wraps a failed request to the search engine.
// StatusCode is zero when no HTTP response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	msg := ErrTransport.Error() + ": " + e.Op
	if e.StatusCode != 0 {
		msg += ": status " + strconv.Itoa(e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrTransport) hold while Unwrap exposes the cause.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
func (e *TransportError) Unwrap() error        { return e.Err }

// ParseError wraps a response body that could not be decoded.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return ErrParse.Error() + ": " + e.Reason + ": " + e.Err.Error()
	}
	return ErrParse.Error() + ": " + e.Reason
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }
func (e *ParseError) Unwrap() error        { return e.Err }
