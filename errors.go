package solrsync

import "github.com/kailas-cloud/solrsync/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrMapping        = domain.ErrMapping
	ErrTranslation    = domain.ErrTranslation
	ErrTransport      = domain.ErrTransport
	ErrParse          = domain.ErrParse
	ErrRecordNotFound = domain.ErrRecordNotFound
	ErrUnknownType    = domain.ErrUnknownType
	ErrInvalidRecord  = domain.ErrInvalidRecord
	ErrRebuildRunning = domain.ErrRebuildRunning
)
