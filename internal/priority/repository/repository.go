package repository

import (
	"context"
	"errors"

	"github.com/convenios/prioridades/internal/priority"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repository persists priorities and their documents. Implementations must
// be safe for concurrent use.
type Repository interface {
	// Create stores p and docs atomically: either all records are written or
	// none are.
	Create(ctx context.Context, p *priority.Priority, docs []*priority.Document) error
	Get(ctx context.Context, id string) (*priority.Priority, error)
	// ListByOwner returns the owner's priorities, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*priority.Priority, error)
	// ListDocuments returns the documents of a priority in registration order.
	ListDocuments(ctx context.Context, priorityID string) ([]*priority.Document, error)
	GetDocument(ctx context.Context, id string) (*priority.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status priority.DocumentStatus) error
}
