// Package storage defines the persistence interface for the document corpus.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/biblio/internal/models"
	"github.com/hyperjump/biblio/internal/query"
)

// ErrNotFound is returned by point lookups for an unknown document id.
var ErrNotFound = errors.New("not found")

// Storage is the corpus store: documents keyed by id and their page texts.
type Storage interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListPages(ctx context.Context, docID string) ([]*models.Page, error)

	// Search runs a compiled statement and returns one result per matching document.
	Search(ctx context.Context, stmt *query.Statement) ([]*models.SearchResult, error)

	// BeginIngest opens the transaction an ingestion run writes through.
	BeginIngest(ctx context.Context) (IngestTx, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountPages(ctx context.Context) (int64, error)

	Close() error
}

// IngestTx is a single ingestion run's view of the store. Nothing written
// through it is durable until Commit.
type IngestTx interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocumentPath(ctx context.Context, id, path string) error

	CreateDocument(ctx context.Context, doc *models.Document) error
	CreatePage(ctx context.Context, page *models.Page) error

	// WithSavepoint runs fn so that everything it writes is kept or discarded
	// together: a non-nil error from fn undoes its writes and is returned.
	WithSavepoint(ctx context.Context, fn func() error) error

	Commit() error
	// Rollback discards the run. It is a no-op after Commit.
	Rollback() error
}
