package ports

import (
	"context"

	"github.com/openmart/martd/internal/core/domain"
)

// LiveStore indexes the currently open (unsold) listings for cheap reads.
// It is a projection of the item store, not a source of truth: entries are
// added on listing and removed on sale.
type LiveStore interface {
	AddListing(ctx context.Context, item domain.Item) error
	RemoveListing(ctx context.Context, itemId uint64) error
	GetListings(ctx context.Context) ([]domain.Item, error)
	Len(ctx context.Context) (int64, error)
	Close()
}
