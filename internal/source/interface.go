package source

import "context"

// PhotoItem is one photo offered to the batch transformer.
type PhotoItem struct {
	SourceID     string // Unique ID within the source
	LocalPath    string // Local file path
	Format       string // File extension without dot (jpg, png, ...)
	DisplayName  string // Optional per-photo display name
	Variant      string // Optional per-photo costume, overrides the run default
	Augmentation string // Optional extra prompt text
}

// Source defines the interface for photo sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	GetDisplayName() string

	// FetchBatch fetches a batch of photos starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of photos.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []PhotoItem, nextCursor string, err error)
}
