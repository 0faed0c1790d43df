package domain

import (
	"context"
)

// ItemRepository provides paginated access to the wardrobe catalog
type ItemRepository interface {
	// ListItems returns one page of items matching filter.
	// page is 1-based, as the server expects.
	ListItems(ctx context.Context, filter ItemFilter, page, pageSize int) (Page, error)

	// ItemTypes returns per-type counts for non-archived items
	ItemTypes(ctx context.Context) ([]ItemType, error)
}

// ItemMutator performs single-item writes. None of these report partial
// failure; each either succeeds or returns an error.
type ItemMutator interface {
	// DeleteItem permanently removes an item
	DeleteItem(ctx context.Context, itemID string) error

	// AnalyzeItem queues AI re-tagging; the server flips status to processing
	AnalyzeItem(ctx context.Context, itemID string) error

	// ArchiveItem hides an item from the default listing
	ArchiveItem(ctx context.Context, itemID, reason string) (Item, error)

	// RestoreItem reverses ArchiveItem
	RestoreItem(ctx context.Context, itemID string) (Item, error)

	// SetFavorite updates the favorite flag
	SetFavorite(ctx context.Context, itemID string, favorite bool) (Item, error)
}

// BulkMutator performs partial-failure tolerant writes over a selection
type BulkMutator interface {
	BulkDelete(ctx context.Context, req BulkRequest) (BulkDeleteResult, error)
	BulkAnalyze(ctx context.Context, req BulkRequest) (BulkAnalyzeResult, error)
}

// Uploader sends new item images to the server
type Uploader interface {
	// UploadItems posts the given image files. Cancelling ctx aborts the
	// transfer only; no local state depends on it.
	UploadItems(ctx context.Context, paths []string) (BulkUploadResult, error)
}

// ItemClient is everything the wardrobe client needs from the server
type ItemClient interface {
	ItemRepository
	ItemMutator
	BulkMutator
	Uploader
}
