package storage

import (
	"context"

	"imovel-importer/models"
)

// ListingStore is the capability interface the pipeline depends on. It names
// exactly the scoped reads and bounded writes the import and enrichment
// passes perform; the pipeline never deletes rows.
type ListingStore interface {
	// Reference relations, fetched once per import run.
	OperationTypes(ctx context.Context) ([]models.TaxonomyRow, error)
	PropertyTypes(ctx context.Context) ([]models.TaxonomyRow, error)

	// ExistingCodes reports which of the candidate external codes are already
	// persisted for the user. One batched in-list lookup, not N queries.
	ExistingCodes(ctx context.Context, userID string, codes []string) (map[string]bool, error)

	// InsertBatch persists all staged listings in a single call. A failure is
	// fatal for the run; partial insertion is never attempted.
	InsertBatch(ctx context.Context, listings []*models.Listing) error

	// Scoped reads for the enrichment passes. allUsers widens the scope from
	// one user to the whole table (admin only).
	DraftsByUser(ctx context.Context, userID string, allUsers bool) ([]*models.Listing, error)
	DraftsMissingCoordinates(ctx context.Context, userID string, allUsers bool) ([]*models.Listing, error)
	ListingsWithPhotos(ctx context.Context, userID string, allUsers bool) ([]*models.Listing, error)

	// Bounded per-row patches.
	UpdateTexts(ctx context.Context, id int64, title, description string) error
	UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error
	UpdatePhotos(ctx context.Context, id int64, photos string) error

	// PublishDrafts transitions every in-scope draft to published in one
	// statement and returns the affected-row count, or -1 when the backend
	// cannot report it.
	PublishDrafts(ctx context.Context, userID string, allUsers bool) (int64, error)
	CountDrafts(ctx context.Context, userID string, allUsers bool) (int64, error)
}

// ObjectStorage abstracts the platform's media bucket.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	// PublicURL returns the public address an uploaded object is served from.
	PublicURL(path string) string
}
