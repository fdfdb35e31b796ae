package types

import (
	"context"
	"errors"
	"fmt"
)

// RecordStore is the CRUD contract of the appraisal record store. The HTTP
// client, the SQLite backend and the PostgreSQL backend all satisfy it.
type RecordStore interface {
	// Create stores a new record. ID, CreatedAt and UpdatedAt on rec are
	// ignored; the store assigns them. Returns ErrValidation when clientName
	// is blank.
	Create(ctx context.Context, rec AppraisalRecord) (CreateResult, error)

	// Get returns the full record. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (AppraisalRecord, error)

	// Update replaces the record stored under id. The stored ID and
	// CreatedAt are preserved and UpdatedAt is refreshed. Returns
	// ErrNotFound if absent.
	Update(ctx context.Context, id string, rec AppraisalRecord) (UpdateResult, error)

	// Delete removes the record. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) (DeleteResult, error)

	// List returns summaries ordered by CreatedAt descending.
	List(ctx context.Context) ([]Summary, error)
}

// Backend is a RecordStore with an attach/detach lifecycle.
type Backend interface {
	RecordStore

	// Attach connects to the storage described by config. Returns
	// ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases resources. Idempotent. After Detach, operations
	// return ErrDetached.
	Detach() error
}

// Backend lifecycle errors.
var (
	ErrDetached        = errors.New("record store is detached")
	ErrAlreadyAttached = errors.New("record store is already attached")
)

// Record and transport errors. Callers branch on these with errors.Is.
var (
	ErrValidation   = errors.New("missing required appraisal data")
	ErrNotFound     = errors.New("appraisal not found")
	ErrInvalidID    = errors.New("invalid appraisal id")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransient    = errors.New("record store unavailable")
	ErrRender       = errors.New("render failed")
	ErrUnknownField = fmt.Errorf("%w: unknown form field", ErrValidation)
)

// Messages returned by the record store on success.
const (
	MessageCreated = "Appraisal saved successfully"
	MessageUpdated = "Appraisal updated successfully"
	MessageDeleted = "Appraisal deleted successfully"
)
